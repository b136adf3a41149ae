package autocompletequery

import "discovery-workers/internal/models"

type Input struct {
	Prefix string              `json:"prefix"`
	Type   models.DocumentType `json:"type,omitempty"`
	Limit  int                 `json:"limit"`
}

type Output struct {
	Suggestions []models.Suggestion `json:"suggestions"`
	Took        int64               `json:"took"`
}

func (o *Output) ResultSize() int {
	return len(o.Suggestions)
}
