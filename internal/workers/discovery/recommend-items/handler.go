package recommenditems

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"discovery-workers/internal/common/camunda"
	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/observability"
	"discovery-workers/internal/models"
	"discovery-workers/pkg/registry"
)

const TaskType = config.TaskRecommendItems

type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendationResult, error)
}

type Handler struct {
	config  *Config
	service Recommender
	runner  *camunda.Runner
	logger  logger.Logger
}

func NewHandler(config *Config, service Recommender, schema *registry.InputValidator, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		service: service,
		runner:  camunda.NewRunner(TaskType, config.Timeout, schema, obs, log),
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Recommend(ctx, models.RecommendRequest{
		UserID:    input.UserID,
		ItemID:    input.ItemID,
		Type:      input.Type,
		Limit:     input.Limit,
		Algorithm: input.Algorithm,
	})
	if err != nil {
		return nil, err
	}

	if res.Degraded {
		h.logger.Info("recommendations served by fallback", map[string]interface{}{
			"userId":    input.UserID,
			"itemId":    input.ItemID,
			"requested": res.Requested,
		})
	}

	recs := res.Recommendations
	if recs == nil {
		recs = []models.RecommendationCandidate{}
	}
	return &Output{
		Recommendations: recs,
		Algorithm:       res.Algorithm,
		Degraded:        res.Degraded,
	}, nil
}
