package recommenditems

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/models"
	"discovery-workers/pkg/registry"
)

type stubRecommender struct {
	got models.RecommendRequest
	res *models.RecommendationResult
	err error
}

func (s *stubRecommender) Recommend(_ context.Context, req models.RecommendRequest) (*models.RecommendationResult, error) {
	s.got = req
	return s.res, s.err
}

func newHandler(t *testing.T, svc Recommender) *Handler {
	t.Helper()
	reg, err := registry.Load()
	require.NoError(t, err)
	schema, err := reg.Validator(TaskType)
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: time.Second}, svc, schema, nil, logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	svc := &stubRecommender{res: &models.RecommendationResult{
		Recommendations: []models.RecommendationCandidate{
			{ID: "C", Type: models.DocumentTypeProduct, Score: 0.5, Reason: models.ReasonCollaborative},
		},
		Algorithm: models.AlgorithmCollaborative,
		Requested: models.AlgorithmCollaborative,
	}}
	h := newHandler(t, svc)

	var input Input
	require.NoError(t, h.runner.Decode([]byte(`{"userId":"U1","algorithm":"collaborative","limit":5}`), &input))
	out, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)

	assert.Equal(t, "U1", svc.got.UserID)
	assert.Equal(t, models.AlgorithmCollaborative, svc.got.Algorithm)
	assert.Equal(t, 5, svc.got.Limit)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, 0.5, out.Recommendations[0].Score)
	assert.False(t, out.Degraded)
}

func TestHandler_DegradedResultCompletes(t *testing.T) {
	h := newHandler(t, &stubRecommender{res: &models.RecommendationResult{
		Algorithm: models.AlgorithmPopularity,
		Requested: models.AlgorithmHybrid,
		Degraded:  true,
	}})

	out, err := h.Execute(context.Background(), &Input{UserID: "new-user"})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, models.AlgorithmPopularity, out.Algorithm)
	assert.NotNil(t, out.Recommendations)
}

func TestHandler_NeedsUserOrItem(t *testing.T) {
	h := newHandler(t, &stubRecommender{})

	var input Input
	err := h.runner.Decode([]byte(`{"limit":5}`), &input)
	assert.True(t, errors.IsValidation(err))

	err = h.runner.Decode([]byte(`{"itemId":"p1","algorithm":"random"}`), &input)
	assert.True(t, errors.IsValidation(err))
}

func TestHandler_FailureEverywhereIsRetryable(t *testing.T) {
	h := newHandler(t, &stubRecommender{err: errors.NewEngineFailureError("recommend", assert.AnError)})

	_, err := h.Execute(context.Background(), &Input{UserID: "U1"})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}
