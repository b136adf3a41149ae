package index

import "discovery-workers/internal/models"

// Field names shared by the mapping and the query builders.
const (
	FieldTitleSuggest  = "title.suggest"
	FieldTitleShingles = "title.shingles"
	FieldTitleKeyword  = "title.keyword"
	FieldCategoryExact = "category.keyword"
	SuggestContextType = "type"
)

func keyword() map[string]interface{} {
	return map[string]interface{}{"type": "keyword"}
}

// CatalogMapping is the mapping of the searchable document index. title
// carries a completion sub-field for prefix suggestions and a shingle
// sub-field for phrase suggestions.
func CatalogMapping() map[string]interface{} {
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"filter": map[string]interface{}{
					"shingle_filter": map[string]interface{}{
						"type":             "shingle",
						"min_shingle_size": 2,
						"max_shingle_size": 3,
					},
				},
				"analyzer": map[string]interface{}{
					"shingle_analyzer": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "shingle_filter"},
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"dynamic": "false",
			"properties": map[string]interface{}{
				"id":   keyword(),
				"type": keyword(),
				"title": map[string]interface{}{
					"type": "text",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
						"suggest": map[string]interface{}{
							"type": "completion",
							"contexts": []interface{}{
								map[string]interface{}{"name": SuggestContextType, "type": "category", "path": "type"},
							},
						},
						"shingles": map[string]interface{}{"type": "text", "analyzer": "shingle_analyzer"},
					},
				},
				"description": map[string]interface{}{"type": "text"},
				"category": map[string]interface{}{
					"type":   "text",
					"fields": map[string]interface{}{"keyword": keyword()},
				},
				"tags":         keyword(),
				"price":        map[string]interface{}{"type": "double"},
				"currency":     keyword(),
				"location":     map[string]interface{}{"type": "geo_point"},
				"rating":       map[string]interface{}{"type": "float"},
				"reviewCount":  map[string]interface{}{"type": "long"},
				"availability": map[string]interface{}{"type": "boolean"},
				"attributes":   map[string]interface{}{"type": "flattened"},
				"createdAt":    map[string]interface{}{"type": "date"},
				"updatedAt":    map[string]interface{}{"type": "date"},

				"amenities":    keyword(),
				"checkInTime":  keyword(),
				"checkOutTime": keyword(),
				"maxGuests":    map[string]interface{}{"type": "integer"},

				"vendor": keyword(),
				"sku":    keyword(),
				"brand":  keyword(),
				"stock":  map[string]interface{}{"type": "long"},

				"provider":        keyword(),
				"durationMinutes": map[string]interface{}{"type": "integer"},
			},
		},
	}
}

// InteractionsMapping is the mapping of the interaction log index.
func InteractionsMapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":              keyword(),
				"userId":          keyword(),
				"itemId":          keyword(),
				"itemType":        keyword(),
				"interactionType": keyword(),
				"timestamp":       map[string]interface{}{"type": "date"},
				"metadata":        map[string]interface{}{"type": "object", "enabled": false},
			},
		},
	}
}

// AllTypeContexts lists every document type as a completion context.
func AllTypeContexts() []string {
	out := make([]string, 0, len(models.DocumentTypes))
	for _, dt := range models.DocumentTypes {
		out = append(out, string(dt))
	}
	return out
}
