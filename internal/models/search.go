package models

// Facet names accepted by search.
const (
	FacetCategory = "category"
	FacetType     = "type"
	FacetPrice    = "price"
	FacetRating   = "rating"
	FacetTags     = "tags"
)

// Sort fields accepted by search.
const (
	SortRelevance   = "relevance"
	SortPrice       = "price"
	SortRating      = "rating"
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortReviewCount = "reviewCount"
	SortTitle       = "title"
	SortDistance    = "distance"
)

type SearchRequest struct {
	Query   string        `json:"query,omitempty" validate:"max=512"`
	Filters SearchFilters `json:"filters,omitempty"`
	Sort    *SortSpec     `json:"sort,omitempty"`
	Page    int           `json:"page,omitempty" validate:"gte=0"`
	Size    int           `json:"size,omitempty" validate:"gte=0"`
	Facets  []string      `json:"facets,omitempty" validate:"dive,oneof=category type price rating tags"`
}

// SearchFilters combine with AND across groups and OR within a multi-valued group.
type SearchFilters struct {
	Types       []DocumentType         `json:"types,omitempty" validate:"dive,oneof=product lodging service"`
	Categories  []string               `json:"categories,omitempty" validate:"dive,required"`
	PriceRange  *NumericRange          `json:"priceRange,omitempty"`
	RatingRange *NumericRange          `json:"ratingRange,omitempty"`
	Geo         *GeoFilter             `json:"geo,omitempty"`
	Available   *bool                  `json:"available,omitempty"`
	Tags        []string               `json:"tags,omitempty" validate:"dive,required"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type GeoFilter struct {
	Center   *GeoPoint `json:"center,omitempty"`
	RadiusKm float64   `json:"radiusKm" validate:"gt=0"`
}

type SortSpec struct {
	Field string `json:"field" validate:"omitempty,oneof=relevance price rating createdAt updatedAt reviewCount title distance"`
	Order string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

type FacetBucket struct {
	Key   string   `json:"key"`
	Count int64    `json:"count"`
	From  *float64 `json:"from,omitempty"`
	To    *float64 `json:"to,omitempty"`
}

type SearchResult struct {
	Documents  []Document               `json:"documents"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Size       int                      `json:"size"`
	TotalPages int                      `json:"totalPages"`
	Facets     map[string][]FacetBucket `json:"facets,omitempty"`
	Took       int64                    `json:"took"`
}
