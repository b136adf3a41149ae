// Package catalog writes documents into the searchable index.
package catalog

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/common/logger"
	"discovery-workers/internal/common/metrics"
	"discovery-workers/internal/common/validation"
	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

const defaultBatchSize = 500

type Config struct {
	Index     string
	BatchSize int
}

// Indexer validates documents against their type schema, stamps them and
// bulk-writes them in batches.
type Indexer struct {
	gateway index.Gateway
	schemas *validation.DocumentSchemas
	cfg     Config
	logger  logger.Logger
	now     func() time.Time
}

func NewIndexer(gateway index.Gateway, schemas *validation.DocumentSchemas, cfg Config, log logger.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Indexer{
		gateway: gateway,
		schemas: schemas,
		cfg:     cfg,
		logger:  logger.Component(log, "catalog-indexer"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndex creates the catalog index with its mapping when missing.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	return ix.gateway.EnsureIndex(ctx, ix.cfg.Index, index.CatalogMapping())
}

// IndexDocuments writes req.Documents with req.Operation. Invalid documents
// are reported per item and never sent to the index. Engine failures abort
// the remaining batches and are returned; rewriting the same ids is safe.
func (ix *Indexer) IndexDocuments(ctx context.Context, req models.IndexRequest) (result *models.IndexingResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("index_documents", start, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	op := req.Operation
	if op == "" {
		op = models.OperationIndex
	}
	target := req.Index
	if target == "" {
		target = ix.cfg.Index
	}

	result = &models.IndexingResult{Errors: []models.IndexingError{}}
	items := make([]index.BulkItem, 0, len(req.Documents))
	for i, raw := range req.Documents {
		item, reason := ix.prepare(op, raw)
		if reason != "" {
			result.Errors = append(result.Errors, models.IndexingError{ID: item.ID, Reason: reason})
			ix.logger.Debug("Rejected document", map[string]interface{}{"position": i, "id": item.ID, "reason": reason})
			continue
		}
		items = append(items, item)
	}

	for lo := 0; lo < len(items); lo += ix.cfg.BatchSize {
		hi := min(lo+ix.cfg.BatchSize, len(items))
		if op == models.OperationIndex {
			if err := ix.stampCreated(ctx, target, items[lo:hi]); err != nil {
				return nil, err
			}
		}
		res, err := ix.gateway.BulkWrite(ctx, target, op, items[lo:hi], req.Refresh)
		if err != nil {
			ix.logger.Error("Bulk write failed", map[string]interface{}{
				"index":   target,
				"batch":   lo / ix.cfg.BatchSize,
				"indexed": result.Indexed,
				"error":   err,
			})
			return nil, err
		}
		result.Indexed += res.Indexed
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, models.IndexingError{ID: e.ID, Reason: e.Reason})
		}
	}

	result.Took = time.Since(start).Milliseconds()
	ix.logger.Info("Documents written", map[string]interface{}{
		"index":     target,
		"operation": op,
		"indexed":   result.Indexed,
		"errors":    len(result.Errors),
	})
	return result, nil
}

// prepare validates one raw document and returns its bulk item, or a
// rejection reason.
func (ix *Indexer) prepare(op models.Operation, raw []byte) (index.BulkItem, string) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return index.BulkItem{}, "document is not a JSON object"
	}
	id, _ := doc["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return index.BulkItem{}, "id is required"
	}
	item := index.BulkItem{ID: id}

	if op == models.OperationDelete {
		return item, ""
	}
	if reason := ix.schemas.Validate(raw, op == models.OperationUpdate); reason != "" {
		return item, reason
	}

	doc["updatedAt"] = ix.now().Format(time.RFC3339Nano)
	item.Doc = doc
	return item, ""
}

// stampCreated fills createdAt on documents that lack it: with the stored
// value when the id already exists, so re-indexing keeps the creation
// time, and with now otherwise.
func (ix *Indexer) stampCreated(ctx context.Context, target string, items []index.BulkItem) error {
	var missing []string
	for _, it := range items {
		if _, ok := it.Doc.(map[string]interface{})["createdAt"]; !ok {
			missing = append(missing, it.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	existing := map[string]string{}
	res, err := ix.gateway.Query(ctx, target, map[string]interface{}{
		"size":    len(missing),
		"_source": []string{"createdAt"},
		"query":   map[string]interface{}{"ids": map[string]interface{}{"values": missing}},
	})
	switch {
	case err == nil:
		for _, h := range res.Hits {
			var src struct {
				CreatedAt string `json:"createdAt"`
			}
			if h.Decode(&src) == nil && src.CreatedAt != "" {
				existing[h.ID] = src.CreatedAt
			}
		}
	case errors.CodeOf(err) == errors.ErrCodeIndexNotFound:
	default:
		return err
	}

	now := ix.now().Format(time.RFC3339Nano)
	for _, it := range items {
		doc := it.Doc.(map[string]interface{})
		if _, ok := doc["createdAt"]; ok {
			continue
		}
		if created, ok := existing[it.ID]; ok {
			doc["createdAt"] = created
		} else {
			doc["createdAt"] = now
		}
	}
	return nil
}

// GetDocument reads one document by id. A missing document is reported as
// index.ErrNotFound.
func (ix *Indexer) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewValidationError("id is required", "")
	}
	hit, err := ix.gateway.Get(ctx, ix.cfg.Index, id)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := hit.Decode(&doc); err != nil {
		return nil, errors.NewEngineFailureError("decode document", err)
	}
	return &doc, nil
}
