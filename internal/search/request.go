package search

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/models"
)

// MaxResultWindow bounds how deep a search may page: page × size must not
// exceed the engine's index.max_result_window.
const MaxResultWindow = 10000

// NormalizeSearch validates req and fills defaults. Equal requests
// normalise to equal values, which makes them usable as cache keys.
func (c Config) NormalizeSearch(req models.SearchRequest) (models.SearchRequest, error) {
	if err := validation.Struct(req); err != nil {
		return req, err
	}

	f := &req.Filters
	if f.Geo != nil && f.Geo.Center == nil {
		return req, errors.NewFieldValidationError(map[string]string{"filters.geo.center": "is required with a geo radius"})
	}
	for name, r := range map[string]*models.NumericRange{"filters.priceRange": f.PriceRange, "filters.ratingRange": f.RatingRange} {
		if r != nil && r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return req, errors.NewFieldValidationError(map[string]string{name: "min must not exceed max"})
		}
	}
	if req.Sort != nil && req.Sort.Field == models.SortDistance && (f.Geo == nil || f.Geo.Center == nil) {
		return req, errors.NewFieldValidationError(map[string]string{"sort.field": "distance requires filters.geo.center"})
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Size == 0 {
		req.Size = c.DefaultPageSize
	}
	if req.Size > c.MaxPageSize {
		req.Size = c.MaxPageSize
	}
	if req.Page*req.Size > MaxResultWindow {
		return req, errors.NewFieldValidationError(map[string]string{
			"page": fmt.Sprintf("page × size must not exceed %d", MaxResultWindow),
		})
	}

	if req.Sort != nil {
		s := *req.Sort
		if s.Field == "" {
			s.Field = models.SortRelevance
		}
		if s.Order == "" {
			s.Order = "desc"
			if s.Field == models.SortTitle || s.Field == models.SortDistance {
				s.Order = "asc"
			}
		}
		req.Sort = &s
	}

	f.Types = uniqueSorted(f.Types)
	f.Categories = uniqueSorted(f.Categories)
	f.Tags = uniqueSorted(f.Tags)
	req.Facets = uniqueSorted(req.Facets)
	return req, nil
}

// NormalizeAutocomplete validates req and fills defaults.
func (c Config) NormalizeAutocomplete(req models.AutocompleteRequest) (models.AutocompleteRequest, error) {
	req.Prefix = strings.TrimSpace(req.Prefix)
	if n := utf8.RuneCountInString(req.Prefix); n < c.MinPrefixLength {
		return req, errors.NewFieldValidationError(map[string]string{
			"prefix": fmt.Sprintf("must be at least %d characters", c.MinPrefixLength),
		})
	}
	if err := validation.Struct(req); err != nil {
		return req, err
	}
	if req.Limit == 0 {
		req.Limit = c.DefaultLimit
	}
	if req.Limit > c.MaxLimit {
		req.Limit = c.MaxLimit
	}
	return req, nil
}

func uniqueSorted[T ~string](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
