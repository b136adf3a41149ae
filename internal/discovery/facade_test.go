package discovery

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/analytics"
	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/models"
)

type stubSearch struct {
	err error
}

func (s *stubSearch) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResult{Total: 3, Documents: []models.Document{}}, nil
}

func (s *stubSearch) Autocomplete(ctx context.Context, req models.AutocompleteRequest) (*models.SuggestionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SuggestionResult{Suggestions: []models.Suggestion{{Text: "iPhone 15 Pro"}}}, nil
}

type sinkFunc func(ev analytics.Event)

func (f sinkFunc) Record(ctx context.Context, ev analytics.Event) error {
	f(ev)
	return nil
}

type stubIndexer struct {
	ensured bool
	err     error
}

func (s *stubIndexer) EnsureIndex(ctx context.Context) error {
	s.ensured = true
	return s.err
}

func (s *stubIndexer) IndexDocuments(ctx context.Context, req models.IndexRequest) (*models.IndexingResult, error) {
	return &models.IndexingResult{Indexed: len(req.Documents)}, nil
}

func (s *stubIndexer) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return &models.Document{ID: id}, nil
}

type stubSchema struct{ calls int }

func (s *stubSchema) EnsureSchema(ctx context.Context) error {
	s.calls++
	return nil
}

func newRecorder(t *testing.T) (*analytics.Recorder, func() []analytics.Event) {
	var (
		mu     sync.Mutex
		events []analytics.Event
	)
	r := analytics.NewRecorder([]analytics.Sink{sinkFunc(func(ev analytics.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})}, 8, time.Second, logger.NewNoOpLogger())
	return r, func() []analytics.Event {
		require.NoError(t, r.Close(context.Background()))
		mu.Lock()
		defer mu.Unlock()
		return events
	}
}

func TestSearchAndAutocompleteRecordAnalytics(t *testing.T) {
	rec, drain := newRecorder(t)
	f := New(Deps{Search: &stubSearch{}, Analytics: rec}, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := f.Search(ctx, models.SearchRequest{Query: "phone", Filters: models.SearchFilters{Types: []models.DocumentType{"product", "service"}}})
	require.NoError(t, err)
	_, err = f.Search(ctx, models.SearchRequest{})
	require.NoError(t, err)
	_, err = f.Autocomplete(ctx, models.AutocompleteRequest{Prefix: "iph"})
	require.NoError(t, err)

	events := drain()
	require.Len(t, events, 2, "browse without a query is not recorded")
	assert.Equal(t, analytics.Event{Kind: analytics.KindSearch, Query: "phone", Type: "product,service", Results: 3}, withoutTime(events[0]))
	assert.Equal(t, analytics.KindAutocomplete, events[1].Kind)
	assert.Equal(t, 1, events[1].Results)
}

func TestFailedCallsAreNotRecorded(t *testing.T) {
	rec, drain := newRecorder(t)
	f := New(Deps{Search: &stubSearch{err: errors.NewEngineFailureError("query", stderrors.New("down"))}, Analytics: rec}, logger.NewNoOpLogger())

	_, err := f.Search(context.Background(), models.SearchRequest{Query: "phone"})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.Empty(t, drain())
}

func TestEnsureIndexes(t *testing.T) {
	ix, schema := &stubIndexer{}, &stubSchema{}
	f := New(Deps{Indexer: ix, Schemas: []SchemaEnsurer{schema}}, logger.NewNoOpLogger())

	require.NoError(t, f.EnsureIndexes(context.Background()))
	assert.True(t, ix.ensured)
	assert.Equal(t, 1, schema.calls)

	ix.err = errors.NewEngineFailureError("ensure index", stderrors.New("down"))
	require.Error(t, f.EnsureIndexes(context.Background()))
	assert.Equal(t, 1, schema.calls)
}

func TestPopularQueriesWithoutAnalytics(t *testing.T) {
	f := New(Deps{}, logger.NewNoOpLogger())
	top, err := f.PopularQueries(context.Background(), analytics.KindSearch, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func withoutTime(ev analytics.Event) analytics.Event {
	ev.Timestamp = time.Time{}
	return ev
}
