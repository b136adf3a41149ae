package recommend

import (
	"context"

	"discovery-workers/internal/cache"
	"discovery-workers/internal/models"
)

// CachedService caches recommendation results per normalised request. The
// entries are never invalidated; the TTL bounds their staleness.
type CachedService struct {
	next  Recommender
	layer *cache.Layer
	cfg   Config
}

func NewCachedService(next Recommender, layer *cache.Layer, cfg Config) *CachedService {
	return &CachedService{next: next, layer: layer, cfg: cfg}
}

func (c *CachedService) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendationResult, error) {
	req, err := c.cfg.Normalize(req)
	if err != nil {
		return nil, err
	}
	key := cache.Key("recommend", req.UserID, req.ItemID, req.Type, req.Algorithm, req.Limit)
	return cache.Fetch(ctx, c.layer, "recommend", key, c.cfg.CacheTTL, func(ctx context.Context) (*models.RecommendationResult, error) {
		return c.next.Recommend(ctx, req)
	})
}
