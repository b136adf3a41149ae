package search

import (
	"math"
	"sort"
	"strings"

	"discovery-workers/internal/models"
)

// finite maps NaN, infinities and negatives to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// mergeSuggestions flattens the strategy outputs, keeps the highest-scoring
// suggestion per case-insensitive text, sorts by score descending and
// truncates to limit.
func mergeSuggestions(groups [][]models.Suggestion, limit int) []models.Suggestion {
	best := map[string]models.Suggestion{}
	for _, group := range groups {
		for _, s := range group {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			s.Text = text
			key := strings.ToLower(text)
			if cur, ok := best[key]; !ok || s.Score > cur.Score {
				best[key] = s
			}
		}
	}

	out := make([]models.Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
