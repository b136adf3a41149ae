// Package indextest provides test doubles for the index gateway.
package indextest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// NewServer starts an httptest server that identifies as Elasticsearch and
// returns a client pointed at it.
func NewServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *elasticsearch.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return srv, client
}

// Fake is an in-memory Gateway. Query and FindSimilar delegate to the
// optional funcs; Get and BulkWrite operate on Docs.
type Fake struct {
	mu sync.Mutex

	Docs    map[string]map[string]json.RawMessage
	Queries []map[string]interface{}

	QueryFunc       func(index string, body map[string]interface{}) (*index.QueryResult, error)
	FindSimilarFunc func(idx, seedID string, opts index.SimilarOptions) ([]index.Hit, error)
	BulkErr         error
}

func NewFake() *Fake {
	return &Fake{Docs: make(map[string]map[string]json.RawMessage)}
}

func (f *Fake) EnsureIndex(ctx context.Context, name string, mapping map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Docs[name]; !ok {
		f.Docs[name] = make(map[string]json.RawMessage)
	}
	return nil
}

func (f *Fake) BulkWrite(ctx context.Context, idx string, op models.Operation, items []index.BulkItem, refresh bool) (*index.BulkResult, error) {
	if f.BulkErr != nil {
		return nil, f.BulkErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Docs[idx] == nil {
		f.Docs[idx] = make(map[string]json.RawMessage)
	}
	res := &index.BulkResult{Errors: []index.BulkItemError{}}
	for _, it := range items {
		switch op {
		case models.OperationDelete:
			if _, ok := f.Docs[idx][it.ID]; !ok {
				res.Errors = append(res.Errors, index.BulkItemError{ID: it.ID, Status: 404, Reason: "not_found"})
				continue
			}
			delete(f.Docs[idx], it.ID)
		case models.OperationCreate:
			if _, ok := f.Docs[idx][it.ID]; ok {
				res.Errors = append(res.Errors, index.BulkItemError{ID: it.ID, Status: 409, Reason: "version_conflict_engine_exception: document already exists"})
				continue
			}
			f.Docs[idx][it.ID], _ = json.Marshal(it.Doc)
		case models.OperationUpdate:
			current, ok := f.Docs[idx][it.ID]
			if !ok {
				res.Errors = append(res.Errors, index.BulkItemError{ID: it.ID, Status: 404, Reason: "document_missing_exception"})
				continue
			}
			merged := map[string]interface{}{}
			_ = json.Unmarshal(current, &merged)
			patch, _ := json.Marshal(it.Doc)
			_ = json.Unmarshal(patch, &merged)
			f.Docs[idx][it.ID], _ = json.Marshal(merged)
		default:
			f.Docs[idx][it.ID], _ = json.Marshal(it.Doc)
		}
		res.Indexed++
	}
	return res, nil
}

func (f *Fake) Query(ctx context.Context, idx string, body map[string]interface{}) (*index.QueryResult, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, body)
	fn := f.QueryFunc
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return &index.QueryResult{Hits: []index.Hit{}}, nil
	}
	return fn(idx, body)
}

func (f *Fake) FindSimilar(ctx context.Context, idx, seedID string, opts index.SimilarOptions) ([]index.Hit, error) {
	if f.FindSimilarFunc == nil {
		return []index.Hit{}, nil
	}
	return f.FindSimilarFunc(idx, seedID, opts)
}

func (f *Fake) Get(ctx context.Context, idx, id string) (*index.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Docs[idx][id]
	if !ok {
		return nil, index.ErrNotFound
	}
	return &index.Hit{ID: id, Index: idx, Source: src}, nil
}

// QueryCount returns how many Query calls were made.
func (f *Fake) QueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries)
}

// HitOf builds a hit whose source is doc.
func HitOf(t *testing.T, doc models.Document, score float64) index.Hit {
	t.Helper()
	src, err := json.Marshal(doc)
	require.NoError(t, err)
	return index.Hit{ID: doc.ID, Score: score, Source: src}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
