// Package recommend produces collaborative, content-based and hybrid
// recommendations with a popularity fallback.
package recommend

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"discovery-workers/internal/common/config"
	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// Recommender is the recommendation surface. Service and CachedService both
// implement it.
type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendationResult, error)
}

// HistorySource reads interaction history. interactions.Store implements it.
type HistorySource interface {
	UserHistory(ctx context.Context, userID string) ([]models.Interaction, error)
	ItemInteractions(ctx context.Context, itemIDs []string, excludeUser string, limit int) ([]models.Interaction, error)
}

type Config struct {
	Index string

	DefaultLimit        int
	MaxLimit            int
	SimilarUsers        int
	SimilarityFloor     float64
	CollaborativeWeight float64
	ContentWeight       float64
	FetchConcurrency    int
	QueryTimeout        time.Duration
	CacheTTL            time.Duration
}

// ConfigFrom maps the loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	r := cfg.Recommend
	return Config{
		Index:               cfg.Database.Elasticsearch.CatalogIndex,
		DefaultLimit:        r.DefaultLimit,
		MaxLimit:            r.MaxLimit,
		SimilarUsers:        r.SimilarUsers,
		SimilarityFloor:     r.SimilarityFloor,
		CollaborativeWeight: r.CollaborativeWeight,
		ContentWeight:       r.ContentWeight,
		FetchConcurrency:    r.FetchConcurrency,
		QueryTimeout:        config.GetDuration(cfg.Search.QueryTimeout),
		CacheTTL:            config.GetTTL(r.CacheTTL),
	}
}

// Normalize validates req and fills defaults.
func (c Config) Normalize(req models.RecommendRequest) (models.RecommendRequest, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if err := validation.Struct(req); err != nil {
		return req, err
	}
	if req.Algorithm == "" {
		req.Algorithm = models.AlgorithmHybrid
	}
	if req.Limit == 0 {
		req.Limit = c.DefaultLimit
	}
	if req.Limit > c.MaxLimit {
		req.Limit = c.MaxLimit
	}
	return req, nil
}

type Service struct {
	gateway index.Gateway
	history HistorySource
	cfg     Config
	logger  logger.Logger
}

func NewService(gateway index.Gateway, history HistorySource, cfg Config, log logger.Logger) *Service {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 8
	}
	return &Service{gateway: gateway, history: history, cfg: cfg, logger: logger.Component(log, "recommend")}
}

// pathResult is the outcome of one recommender.
type pathResult struct {
	cands []candidate
	err   error
}

// Recommend runs the requested recommenders concurrently and blends their
// candidates. When they yield nothing the catalog's popular items are
// returned instead. An error is returned only when a recommender failed
// and the fallback failed too.
func (s *Service) Recommend(ctx context.Context, req models.RecommendRequest) (result *models.RecommendationResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("recommend", start, err) }()

	req, err = s.cfg.Normalize(req)
	if err != nil {
		return nil, err
	}
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	var (
		history    []models.Interaction
		historyErr error
	)
	if req.UserID != "" {
		history, historyErr = s.history.UserHistory(ctx, req.UserID)
		if historyErr != nil {
			s.logger.Warn("Interaction history unavailable", map[string]interface{}{"userId": req.UserID, "error": historyErr})
		}
	}

	pool := candidatePool(req.Limit)
	var collab, content pathResult

	g, gctx := errgroup.WithContext(ctx)
	if req.Algorithm != models.AlgorithmContent && req.UserID != "" {
		g.Go(func() error {
			if historyErr != nil {
				collab.err = historyErr
				return nil
			}
			items, err := s.collaborative(gctx, req.UserID, history)
			if err == nil && len(items) > pool {
				items = items[:pool]
			}
			if err == nil {
				collab.cands, err = s.hydrate(gctx, items, req.Type)
			}
			collab.err = err
			return nil
		})
	}
	if req.Algorithm != models.AlgorithmCollaborative {
		g.Go(func() error {
			content.cands, content.err = s.content(gctx, contentSeed(req.ItemID, history), req.Type, pool)
			return nil
		})
	}
	_ = g.Wait()

	for path, r := range map[string]pathResult{"collaborative": collab, "content": content} {
		if r.err != nil {
			metrics.RecommendationPathFailures.WithLabelValues(path).Inc()
			s.logger.Warn("Recommendation path failed", map[string]interface{}{"path": path, "error": r.err})
		}
	}

	var cands []candidate
	switch req.Algorithm {
	case models.AlgorithmCollaborative:
		cands = withReason(collab.cands, models.ReasonCollaborative)
	case models.AlgorithmContent:
		cands = withReason(content.cands, models.ReasonContent)
	default:
		cands = blend(collab.cands, content.cands, s.cfg.CollaborativeWeight, s.cfg.ContentWeight)
	}

	result = &models.RecommendationResult{Algorithm: req.Algorithm, Requested: req.Algorithm}
	if len(cands) > 0 {
		result.Recommendations = toModels(rank(cands, req.Limit), "")
		result.Took = time.Since(start).Milliseconds()
		return result, nil
	}

	metrics.RecommendationFallbacks.WithLabelValues(string(req.Algorithm)).Inc()
	popular, perr := s.popular(ctx, req.Type, exclusions(req.ItemID, history), req.Limit)
	if perr != nil {
		if cause := firstErr(historyErr, collab.err, content.err); cause != nil {
			return nil, cause
		}
		s.logger.Warn("Popularity fallback failed", map[string]interface{}{"error": perr})
		popular = nil
	}

	result.Algorithm = models.AlgorithmPopularity
	result.Degraded = true
	result.Recommendations = toModels(rank(popular, req.Limit), models.ReasonPopular)
	for i := range result.Recommendations {
		result.Recommendations[i].Metadata["status"] = string(errors.ErrCodeRecommendationDegraded)
	}
	result.Took = time.Since(start).Milliseconds()
	return result, nil
}

func candidatePool(limit int) int {
	pool := limit * 3
	if pool < 30 {
		pool = 30
	}
	if pool > 300 {
		pool = 300
	}
	return pool
}

func withReason(cands []candidate, reason string) []candidate {
	for i := range cands {
		cands[i].Reason = reason
	}
	return cands
}

// exclusions keeps the seed item and items the user already engaged with
// out of the fallback list.
func exclusions(itemID string, history []models.Interaction) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; id == "" || ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(itemID)
	for _, ev := range history {
		add(ev.ItemID)
	}
	return out
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
