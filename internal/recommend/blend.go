package recommend

import (
	"math"
	"sort"

	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// candidate is a scored document before it becomes a
// RecommendationCandidate.
type candidate struct {
	Doc    models.Document
	Score  float64
	Reason string
}

func decodeCandidates(hits []index.Hit, score func(index.Hit) float64, log logger.Logger) []candidate {
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		var doc models.Document
		if err := h.Decode(&doc); err != nil {
			log.Warn("Skipping undecodable document", map[string]interface{}{"id": h.ID, "error": err})
			continue
		}
		if doc.ID == "" {
			doc.ID = h.ID
		}
		c := candidate{Doc: doc}
		if score != nil {
			c.Score = score(h)
		}
		out = append(out, c)
	}
	return out
}

// normalize scales scores into [0,1] by the list maximum.
func normalize(cands []candidate) []candidate {
	top := 0.0
	for _, c := range cands {
		if s := finite(c.Score); s > top {
			top = s
		}
	}
	out := make([]candidate, len(cands))
	for i, c := range cands {
		c.Score = finite(c.Score)
		if top > 0 {
			c.Score /= top
		}
		out[i] = c
	}
	return out
}

// blend combines the two lists by document id. Each list is max-normalised
// first so the weights, not the raw score scales, decide the mix; an item
// in both lists gets the sum of its weighted scores.
func blend(collab, content []candidate, collabWeight, contentWeight float64) []candidate {
	merged := map[string]*candidate{}
	var order []string

	add := func(cands []candidate, weight float64, reason string) {
		for _, c := range normalize(cands) {
			c := c
			cur, ok := merged[c.Doc.ID]
			if !ok {
				c.Score *= weight
				c.Reason = reason
				merged[c.Doc.ID] = &c
				order = append(order, c.Doc.ID)
				continue
			}
			cur.Score += c.Score * weight
			cur.Reason = models.ReasonHybrid
		}
	}
	add(collab, collabWeight, models.ReasonCollaborative)
	add(content, contentWeight, models.ReasonContent)

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	return out
}

// rank sorts by score descending, then rating, recency and id, and
// truncates to limit.
func rank(cands []candidate, limit int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := a.Doc.RatingValue(), b.Doc.RatingValue(); ra != rb {
			return ra > rb
		}
		if ta, tb := a.Doc.Recency(), b.Doc.Recency(); !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.Doc.ID < b.Doc.ID
	})
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func toModels(cands []candidate, reason string) []models.RecommendationCandidate {
	out := make([]models.RecommendationCandidate, 0, len(cands))
	for _, c := range cands {
		r := c.Reason
		if r == "" {
			r = reason
		}
		out = append(out, models.RecommendationCandidate{
			ID:     c.Doc.ID,
			Type:   c.Doc.Type,
			Title:  c.Doc.Title,
			Score:  finite(c.Score),
			Reason: r,
			Metadata: map[string]interface{}{
				"rating":   c.Doc.RatingValue(),
				"category": c.Doc.Category,
			},
		})
	}
	return out
}
