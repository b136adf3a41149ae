package models

import "encoding/json"

type Operation string

const (
	OperationIndex  Operation = "index"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	// OperationCreate writes a new document and rejects an existing id.
	// Append-only writers use it; it is not accepted from callers.
	OperationCreate Operation = "create"
)

type IndexRequest struct {
	Index     string            `json:"index,omitempty" validate:"omitempty,max=255"`
	Operation Operation         `json:"operation,omitempty" validate:"omitempty,oneof=index update delete"`
	Documents []json.RawMessage `json:"documents" validate:"required,min=1"`
	Refresh   bool              `json:"refresh,omitempty"`
}

type IndexingError struct {
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type IndexingResult struct {
	Indexed int             `json:"indexed"`
	Errors  []IndexingError `json:"errors"`
	Took    int64           `json:"took"`
}
