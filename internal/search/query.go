// Package search builds index queries from structured search and
// autocomplete requests and post-processes their results.
package search

import (
	"fmt"
	"sort"

	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// searchFields are the weighted fields of free-text matching.
var searchFields = []string{"title^3", "description^2", "category^1.5", "tags"}

type bucketRange struct {
	key      string
	from, to *float64
}

func bound(v float64) *float64 { return &v }

// Fixed facet bucket boundaries. Upper bounds are exclusive.
var (
	priceBuckets = []bucketRange{
		{"0-50", bound(0), bound(50)},
		{"50-100", bound(50), bound(100)},
		{"100-250", bound(100), bound(250)},
		{"250-500", bound(250), bound(500)},
		{"500-1000", bound(500), bound(1000)},
		{"1000+", bound(1000), nil},
	}
	ratingBuckets = []bucketRange{
		{"0-1", bound(0), bound(1)},
		{"1-2", bound(1), bound(2)},
		{"2-3", bound(2), bound(3)},
		{"3-4", bound(3), bound(4)},
		{"4-5", bound(4), nil},
	}
)

const termsFacetSize = 20

// BuildSearchQuery translates a normalised request into query DSL.
func BuildSearchQuery(req models.SearchRequest) map[string]interface{} {
	var must interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if req.Query != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     req.Query,
				"fields":    searchFields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
				"operator":  "or",
			},
		}
	}

	boolQuery := map[string]interface{}{"must": must}
	if filters := buildFilters(req.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]interface{}{
		"query":            map[string]interface{}{"bool": boolQuery},
		"from":             (req.Page - 1) * req.Size,
		"size":             req.Size,
		"sort":             buildSort(req.Sort, req.Filters.Geo),
		"track_total_hits": true,
	}
	if aggs := buildFacets(req.Facets); len(aggs) > 0 {
		body["aggs"] = aggs
	}
	return body
}

// buildFilters ANDs the filter groups; multi-valued groups use terms, which
// ORs within the group.
func buildFilters(f models.SearchFilters) []interface{} {
	var filters []interface{}

	if len(f.Types) > 0 {
		filters = append(filters, terms("type", f.Types))
	}
	if len(f.Categories) > 0 {
		filters = append(filters, terms(index.FieldCategoryExact, f.Categories))
	}
	if r := rangeFilter("price", f.PriceRange); r != nil {
		filters = append(filters, r)
	}
	if r := rangeFilter("rating", f.RatingRange); r != nil {
		filters = append(filters, r)
	}
	if f.Geo != nil && f.Geo.Center != nil {
		filters = append(filters, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gkm", f.Geo.RadiusKm),
				"location": map[string]interface{}{"lat": f.Geo.Center.Lat, "lon": f.Geo.Center.Lon},
			},
		})
	}
	if f.Available != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"availability": *f.Available},
		})
	}
	if len(f.Tags) > 0 {
		filters = append(filters, terms("tags", f.Tags))
	}

	keys := make([]string, 0, len(f.Attributes))
	for k := range f.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"attributes." + k: f.Attributes[k]},
		})
	}
	return filters
}

func terms[T any](field string, values []T) map[string]interface{} {
	return map[string]interface{}{"terms": map[string]interface{}{field: values}}
}

func rangeFilter(field string, r *models.NumericRange) map[string]interface{} {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return nil
	}
	bounds := map[string]interface{}{}
	if r.Min != nil {
		bounds["gte"] = *r.Min
	}
	if r.Max != nil {
		bounds["lte"] = *r.Max
	}
	return map[string]interface{}{"range": map[string]interface{}{field: bounds}}
}

var sortFields = map[string]string{
	models.SortPrice:       "price",
	models.SortRating:      "rating",
	models.SortCreatedAt:   "createdAt",
	models.SortUpdatedAt:   "updatedAt",
	models.SortReviewCount: "reviewCount",
	models.SortTitle:       index.FieldTitleKeyword,
}

// buildSort puts the requested key first, then rating desc, recency desc
// and id for a stable order.
func buildSort(spec *models.SortSpec, geo *models.GeoFilter) []interface{} {
	field, order := models.SortRelevance, "desc"
	if spec != nil {
		field, order = spec.Field, spec.Order
	}

	var out []interface{}
	switch field {
	case models.SortRelevance, "":
		out = append(out, map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}})
	case models.SortDistance:
		out = append(out, map[string]interface{}{
			"_geo_distance": map[string]interface{}{
				"location": map[string]interface{}{"lat": geo.Center.Lat, "lon": geo.Center.Lon},
				"order":    order,
				"unit":     "km",
			},
		})
	default:
		out = append(out, map[string]interface{}{
			sortFields[field]: map[string]interface{}{"order": order, "missing": "_last"},
		})
	}

	return append(out,
		map[string]interface{}{"rating": map[string]interface{}{"order": "desc", "missing": "_last"}},
		map[string]interface{}{"updatedAt": map[string]interface{}{"order": "desc", "missing": "_last"}},
		map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
	)
}

func buildFacets(names []string) map[string]interface{} {
	aggs := map[string]interface{}{}
	for _, name := range names {
		switch name {
		case models.FacetCategory:
			aggs[name] = termsAgg(index.FieldCategoryExact)
		case models.FacetType:
			aggs[name] = termsAgg("type")
		case models.FacetTags:
			aggs[name] = termsAgg("tags")
		case models.FacetPrice:
			aggs[name] = rangeAgg("price", priceBuckets)
		case models.FacetRating:
			aggs[name] = rangeAgg("rating", ratingBuckets)
		}
	}
	return aggs
}

func termsAgg(field string) map[string]interface{} {
	return map[string]interface{}{"terms": map[string]interface{}{"field": field, "size": termsFacetSize}}
}

func rangeAgg(field string, buckets []bucketRange) map[string]interface{} {
	ranges := make([]interface{}, 0, len(buckets))
	for _, b := range buckets {
		r := map[string]interface{}{"key": b.key}
		if b.from != nil {
			r["from"] = *b.from
		}
		if b.to != nil {
			r["to"] = *b.to
		}
		ranges = append(ranges, r)
	}
	return map[string]interface{}{"range": map[string]interface{}{"field": field, "ranges": ranges}}
}
