// Package index is the narrow gateway over the external document index.
package index

import (
	"context"
	stderrors "errors"

	json "github.com/goccy/go-json"

	"discovery-workers/internal/models"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = stderrors.New("document not found")

// Gateway is everything the discovery core needs from the document index.
type Gateway interface {
	EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) error
	BulkWrite(ctx context.Context, index string, op models.Operation, items []BulkItem, refresh bool) (*BulkResult, error)
	Query(ctx context.Context, index string, body map[string]interface{}) (*QueryResult, error)
	FindSimilar(ctx context.Context, index, seedID string, opts SimilarOptions) ([]Hit, error)
	Get(ctx context.Context, index, id string) (*Hit, error)
}

type Hit struct {
	ID        string              `json:"_id"`
	Index     string              `json:"_index"`
	Score     float64             `json:"_score"`
	Source    json.RawMessage     `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
	Sort      []interface{}       `json:"sort,omitempty"`
}

// Decode unmarshals the hit source into v.
func (h Hit) Decode(v interface{}) error {
	return json.Unmarshal(h.Source, v)
}

type QueryResult struct {
	Total        int64
	MaxScore     float64
	Hits         []Hit
	Aggregations map[string]json.RawMessage
	Suggest      map[string][]SuggestEntry
	Took         int64
}

// SuggestEntry is one analysed token (term suggester) or the whole input
// (completion suggester) with its options.
type SuggestEntry struct {
	Text    string          `json:"text"`
	Offset  int             `json:"offset"`
	Length  int             `json:"length"`
	Options []SuggestOption `json:"options"`
}

// SuggestOption carries term suggester fields (score, freq) and completion
// suggester fields (_id, _score, _source).
type SuggestOption struct {
	Text     string          `json:"text"`
	Score    float64         `json:"score"`
	Freq     int64           `json:"freq"`
	ID       string          `json:"_id"`
	DocScore float64         `json:"_score"`
	Source   json.RawMessage `json:"_source"`
}

// Rank returns the option's index-native score.
func (o SuggestOption) Rank() float64 {
	if o.ID != "" {
		return o.DocScore
	}
	return o.Score
}

type BulkItem struct {
	ID  string
	Doc interface{}
}

type BulkItemError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

type BulkResult struct {
	Indexed int
	Errors  []BulkItemError
	Took    int64
}

// SimilarOptions tunes the more-like-this query used by FindSimilar.
type SimilarOptions struct {
	Fields        []string
	Size          int
	Filters       []map[string]interface{}
	MinTermFreq   int
	MinDocFreq    int
	MaxQueryTerms int
}

func (o SimilarOptions) withDefaults() SimilarOptions {
	if len(o.Fields) == 0 {
		o.Fields = []string{"title", "description", "category", "tags"}
	}
	if o.Size <= 0 {
		o.Size = 10
	}
	if o.MinTermFreq <= 0 {
		o.MinTermFreq = 1
	}
	if o.MinDocFreq <= 0 {
		o.MinDocFreq = 1
	}
	if o.MaxQueryTerms <= 0 {
		o.MaxQueryTerms = 12
	}
	return o
}
