package recommenditems

import "discovery-workers/internal/models"

type Input struct {
	UserID    string              `json:"userId"`
	ItemID    string              `json:"itemId"`
	Type      models.DocumentType `json:"type,omitempty"`
	Limit     int                 `json:"limit"`
	Algorithm models.Algorithm    `json:"algorithm,omitempty"`
}

type Output struct {
	Recommendations []models.RecommendationCandidate `json:"recommendations"`
	Algorithm       models.Algorithm                 `json:"recommendationAlgorithm"`
	Degraded        bool                             `json:"recommendationDegraded"`
}

func (o *Output) ResultSize() int {
	return len(o.Recommendations)
}
