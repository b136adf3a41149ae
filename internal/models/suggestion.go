package models

type SuggestionSource string

const (
	SuggestionCompletion SuggestionSource = "completion"
	SuggestionCorrection SuggestionSource = "correction"
	SuggestionPhrase     SuggestionSource = "phrase"
)

type AutocompleteRequest struct {
	Prefix string       `json:"prefix" validate:"required,max=256"`
	Type   DocumentType `json:"type,omitempty" validate:"omitempty,oneof=product lodging service"`
	Limit  int          `json:"limit,omitempty" validate:"gte=0"`
}

type Suggestion struct {
	Text       string                 `json:"text"`
	SourceType SuggestionSource       `json:"sourceType"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type SuggestionResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Took        int64        `json:"took"`
}
