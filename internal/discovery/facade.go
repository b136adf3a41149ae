// Package discovery is the entry point of the core: search, autocomplete,
// recommendations, interaction recording and document indexing.
package discovery

import (
	"context"
	"strings"

	"discovery-workers/internal/analytics"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/models"
	"discovery-workers/internal/recommend"
	"discovery-workers/internal/search"
)

type InteractionStore interface {
	RecordInteraction(ctx context.Context, ev models.Interaction) (*models.Interaction, error)
	GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
}

type DocumentIndexer interface {
	EnsureIndex(ctx context.Context) error
	IndexDocuments(ctx context.Context, req models.IndexRequest) (*models.IndexingResult, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

// SchemaEnsurer creates backing storage, such as the interaction table.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

type PopularQuerySource interface {
	PopularQueries(ctx context.Context, kind string, n int) ([]analytics.QueryCount, error)
}

type Deps struct {
	Search       search.Searcher
	Recommender  recommend.Recommender
	Interactions InteractionStore
	Indexer      DocumentIndexer
	// Optional.
	Schemas   []SchemaEnsurer
	Analytics *analytics.Recorder
	Popular   PopularQuerySource
}

type Facade struct {
	deps   Deps
	logger logger.Logger
}

func New(deps Deps, log logger.Logger) *Facade {
	return &Facade{deps: deps, logger: logger.Component(log, "discovery")}
}

// EnsureIndexes creates the catalog index and the interaction log storage.
func (f *Facade) EnsureIndexes(ctx context.Context) error {
	if err := f.deps.Indexer.EnsureIndex(ctx); err != nil {
		return err
	}
	for _, s := range f.deps.Schemas {
		if err := s.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (f *Facade) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	res, err := f.deps.Search.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Query != "" {
		types := make([]string, 0, len(req.Filters.Types))
		for _, t := range req.Filters.Types {
			types = append(types, string(t))
		}
		f.record(analytics.Event{Kind: analytics.KindSearch, Query: req.Query, Type: strings.Join(types, ","), Results: int(res.Total)})
	}
	return res, nil
}

func (f *Facade) Autocomplete(ctx context.Context, req models.AutocompleteRequest) (*models.SuggestionResult, error) {
	res, err := f.deps.Search.Autocomplete(ctx, req)
	if err != nil {
		return nil, err
	}
	f.record(analytics.Event{Kind: analytics.KindAutocomplete, Query: req.Prefix, Type: string(req.Type), Results: len(res.Suggestions)})
	return res, nil
}

func (f *Facade) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendationResult, error) {
	return f.deps.Recommender.Recommend(ctx, req)
}

func (f *Facade) RecordInteraction(ctx context.Context, ev models.Interaction) (*models.Interaction, error) {
	return f.deps.Interactions.RecordInteraction(ctx, ev)
}

func (f *Facade) GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	return f.deps.Interactions.GetUserInteractions(ctx, userID, limit)
}

func (f *Facade) IndexDocuments(ctx context.Context, req models.IndexRequest) (*models.IndexingResult, error) {
	return f.deps.Indexer.IndexDocuments(ctx, req)
}

func (f *Facade) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return f.deps.Indexer.GetDocument(ctx, id)
}

// PopularQueries returns the most frequent recorded queries of kind. It is
// empty when analytics are disabled.
func (f *Facade) PopularQueries(ctx context.Context, kind string, n int) ([]analytics.QueryCount, error) {
	if f.deps.Popular == nil {
		return []analytics.QueryCount{}, nil
	}
	return f.deps.Popular.PopularQueries(ctx, kind, n)
}

// record is best-effort; a full or closed queue drops the event.
func (f *Facade) record(ev analytics.Event) {
	if f.deps.Analytics == nil {
		return
	}
	if !f.deps.Analytics.Record(ev) {
		f.logger.Debug("Analytics event dropped", map[string]interface{}{"kind": ev.Kind})
	}
}
