package indexdocuments

import (
	"encoding/json"

	"discovery-workers/internal/models"
)

type Input struct {
	Index     string            `json:"index,omitempty"`
	Operation models.Operation  `json:"operation,omitempty"`
	Documents []json.RawMessage `json:"documents"`
	Refresh   bool              `json:"refresh,omitempty"`
}

type Output struct {
	IndexingResult *models.IndexingResult `json:"indexingResult"`
}

func (o *Output) ResultSize() int {
	return o.IndexingResult.Indexed
}
