package models

type Algorithm string

const (
	AlgorithmCollaborative Algorithm = "collaborative"
	AlgorithmContent       Algorithm = "content"
	AlgorithmHybrid        Algorithm = "hybrid"
	AlgorithmPopularity    Algorithm = "popularity"
)

// Candidate reasons.
const (
	ReasonCollaborative = "users with similar interactions engaged with this"
	ReasonContent       = "similar to an item you engaged with"
	ReasonHybrid        = "similar users and similar content"
	ReasonPopular       = "popular in the catalog"
)

type RecommendRequest struct {
	UserID    string       `json:"userId,omitempty" validate:"required_without=ItemID,max=128"`
	ItemID    string       `json:"itemId,omitempty" validate:"required_without=UserID,max=128"`
	Type      DocumentType `json:"type,omitempty" validate:"omitempty,oneof=product lodging service"`
	Limit     int          `json:"limit,omitempty" validate:"gte=0"`
	Algorithm Algorithm    `json:"algorithm,omitempty" validate:"omitempty,oneof=collaborative content hybrid"`
}

type RecommendationCandidate struct {
	ID       string                 `json:"id"`
	Type     DocumentType           `json:"type"`
	Title    string                 `json:"title"`
	Score    float64                `json:"score"`
	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type RecommendationResult struct {
	Recommendations []RecommendationCandidate `json:"recommendations"`
	// Algorithm is the algorithm that produced the list; popularity when the
	// fallback was used.
	Algorithm Algorithm `json:"algorithm"`
	Requested Algorithm `json:"requested"`
	Degraded  bool      `json:"degraded,omitempty"`
	Took      int64     `json:"took"`
}
