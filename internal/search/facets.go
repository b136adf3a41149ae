package search

import (
	"fmt"

	json "github.com/goccy/go-json"

	"discovery-workers/internal/models"
)

type aggBucket struct {
	Key      interface{} `json:"key"`
	DocCount int64       `json:"doc_count"`
	From     *float64    `json:"from"`
	To       *float64    `json:"to"`
}

type aggResult struct {
	Buckets []aggBucket `json:"buckets"`
}

// parseFacets converts the requested aggregations into facet buckets.
// Aggregations that do not decode are skipped.
func parseFacets(aggs map[string]json.RawMessage, requested []string) map[string][]models.FacetBucket {
	if len(requested) == 0 {
		return nil
	}
	out := make(map[string][]models.FacetBucket, len(requested))
	for _, name := range requested {
		raw, ok := aggs[name]
		if !ok {
			out[name] = []models.FacetBucket{}
			continue
		}
		var agg aggResult
		if err := json.Unmarshal(raw, &agg); err != nil {
			continue
		}
		buckets := make([]models.FacetBucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			buckets = append(buckets, models.FacetBucket{
				Key:   fmt.Sprint(b.Key),
				Count: b.DocCount,
				From:  b.From,
				To:    b.To,
			})
		}
		out[name] = buckets
	}
	return out
}
