package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// Searcher is the search and autocomplete surface. Service and
// CachedService both implement it.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
	Autocomplete(ctx context.Context, req models.AutocompleteRequest) (*models.SuggestionResult, error)
}

type Config struct {
	Index string

	DefaultPageSize int
	MaxPageSize     int
	QueryTimeout    time.Duration
	SearchTTL       time.Duration

	MinPrefixLength int
	DefaultLimit    int
	MaxLimit        int
	StrategyTimeout time.Duration
	AutocompleteTTL time.Duration
}

// ConfigFrom maps the loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Index:           cfg.Database.Elasticsearch.CatalogIndex,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		QueryTimeout:    config.GetDuration(cfg.Search.QueryTimeout),
		SearchTTL:       config.GetTTL(cfg.Search.CacheTTL),
		MinPrefixLength: cfg.Autocomplete.MinPrefixLength,
		DefaultLimit:    cfg.Autocomplete.DefaultLimit,
		MaxLimit:        cfg.Autocomplete.MaxLimit,
		StrategyTimeout: config.GetDuration(cfg.Autocomplete.StrategyTimeout),
		AutocompleteTTL: config.GetTTL(cfg.Autocomplete.CacheTTL),
	}
}

type strategy struct {
	source models.SuggestionSource
	query  func(models.AutocompleteRequest) map[string]interface{}
	parse  func(models.AutocompleteRequest, *index.QueryResult) []models.Suggestion
}

var strategies = []strategy{
	{
		source: models.SuggestionCompletion,
		query:  completionQuery,
		parse: func(_ models.AutocompleteRequest, res *index.QueryResult) []models.Suggestion {
			return completionSuggestions(res)
		},
	},
	{
		source: models.SuggestionCorrection,
		query:  correctionQuery,
		parse: func(req models.AutocompleteRequest, res *index.QueryResult) []models.Suggestion {
			return correctionSuggestions(req.Prefix, res)
		},
	},
	{
		source: models.SuggestionPhrase,
		query:  phraseQuery,
		parse: func(_ models.AutocompleteRequest, res *index.QueryResult) []models.Suggestion {
			return phraseSuggestions(res)
		},
	},
}

// Service runs searches and suggestion strategies against the index.
type Service struct {
	gateway index.Gateway
	cfg     Config
	logger  logger.Logger
}

func NewService(gateway index.Gateway, cfg Config, log logger.Logger) *Service {
	return &Service{gateway: gateway, cfg: cfg, logger: logger.Component(log, "search")}
}

// Search executes a filtered, sorted, paginated query with optional facets.
// Engine failures are returned as typed, retryable errors.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (result *models.SearchResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("search", start, err) }()

	req, err = s.cfg.NormalizeSearch(req)
	if err != nil {
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	res, err := s.gateway.Query(ctx, s.cfg.Index, BuildSearchQuery(req))
	if err != nil {
		s.logger.Error("Search query failed", map[string]interface{}{"query": req.Query, "error": err})
		return nil, err
	}

	docs := make([]models.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var doc models.Document
		if err := hit.Decode(&doc); err != nil {
			s.logger.Warn("Skipping undecodable hit", map[string]interface{}{"id": hit.ID, "error": err})
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) > req.Size {
		docs = docs[:req.Size]
	}

	totalPages := 0
	if req.Size > 0 {
		totalPages = int((res.Total + int64(req.Size) - 1) / int64(req.Size))
	}

	return &models.SearchResult{
		Documents:  docs,
		Total:      res.Total,
		Page:       req.Page,
		Size:       req.Size,
		TotalPages: totalPages,
		Facets:     parseFacets(res.Aggregations, req.Facets),
		Took:       time.Since(start).Milliseconds(),
	}, nil
}

// Autocomplete runs every suggestion strategy concurrently and merges their
// output. A failing strategy contributes nothing; it never fails the call.
func (s *Service) Autocomplete(ctx context.Context, req models.AutocompleteRequest) (result *models.SuggestionResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("autocomplete", start, err) }()

	req, err = s.cfg.NormalizeAutocomplete(req)
	if err != nil {
		return nil, err
	}

	groups := make([][]models.Suggestion, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range strategies {
		i, st := i, st
		g.Go(func() error {
			groups[i] = s.runStrategy(gctx, st, req)
			return nil
		})
	}
	_ = g.Wait()

	return &models.SuggestionResult{
		Suggestions: mergeSuggestions(groups, req.Limit),
		Took:        time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) runStrategy(ctx context.Context, st strategy, req models.AutocompleteRequest) []models.Suggestion {
	if s.cfg.StrategyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StrategyTimeout)
		defer cancel()
	}

	res, err := s.gateway.Query(ctx, s.cfg.Index, st.query(req))
	if err != nil {
		metrics.SuggestionStrategyFailures.WithLabelValues(string(st.source)).Inc()
		s.logger.Warn("Suggestion strategy failed", map[string]interface{}{
			"strategy": st.source,
			"prefix":   req.Prefix,
			"error":    err,
		})
		return nil
	}
	return st.parse(req, res)
}
