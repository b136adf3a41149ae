package search

import (
	"context"

	"discovery-workers/internal/cache"
	"discovery-workers/internal/models"
)

// CachedService caches successful results of the wrapped Searcher, keyed
// by the normalised request. Cache failures fall through to the wrapped
// Searcher.
type CachedService struct {
	next  Searcher
	layer *cache.Layer
	cfg   Config
}

func NewCachedService(next Searcher, layer *cache.Layer, cfg Config) *CachedService {
	return &CachedService{next: next, layer: layer, cfg: cfg}
}

func (c *CachedService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	req, err := c.cfg.NormalizeSearch(req)
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, c.layer, "search", cache.Key("search", req), c.cfg.SearchTTL,
		func(ctx context.Context) (*models.SearchResult, error) {
			return c.next.Search(ctx, req)
		})
}

func (c *CachedService) Autocomplete(ctx context.Context, req models.AutocompleteRequest) (*models.SuggestionResult, error) {
	req, err := c.cfg.NormalizeAutocomplete(req)
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, c.layer, "autocomplete", cache.Key("autocomplete", req.Prefix, req.Type, req.Limit), c.cfg.AutocompleteTTL,
		func(ctx context.Context) (*models.SuggestionResult, error) {
			return c.next.Autocomplete(ctx, req)
		})
}
