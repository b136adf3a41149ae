package interactions

import (
	"context"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

// IndexLog keeps interactions as documents in a dedicated index.
type IndexLog struct {
	gateway index.Gateway
	index   string
}

func NewIndexLog(gateway index.Gateway, indexName string) *IndexLog {
	return &IndexLog{gateway: gateway, index: indexName}
}

// EnsureSchema creates the interactions index when missing.
func (l *IndexLog) EnsureSchema(ctx context.Context) error {
	return l.gateway.EnsureIndex(ctx, l.index, index.InteractionsMapping())
}

// Append writes with refresh so the event is visible to the next read. An
// existing id is a conflict, never an overwrite.
func (l *IndexLog) Append(ctx context.Context, ev models.Interaction) error {
	res, err := l.gateway.BulkWrite(ctx, l.index, models.OperationCreate, []index.BulkItem{{ID: ev.ID, Doc: ev}}, true)
	if err != nil {
		return errors.NewInteractionLogFailureError("append", err)
	}
	if len(res.Errors) > 0 {
		return errors.NewInteractionLogFailureError("append", nil).WithMetadata("reason", res.Errors[0].Reason)
	}
	return nil
}

func (l *IndexLog) QueryByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	return l.query(ctx, "query by user", map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []interface{}{
				map[string]interface{}{"term": map[string]interface{}{"userId": userID}},
			},
		},
	}, limit)
}

func (l *IndexLog) QueryByItems(ctx context.Context, itemIDs []string, excludeUser string, limit int) ([]models.Interaction, error) {
	if len(itemIDs) == 0 {
		return []models.Interaction{}, nil
	}
	return l.query(ctx, "query by items", map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []interface{}{
				map[string]interface{}{"terms": map[string]interface{}{"itemId": itemIDs}},
			},
			"must_not": []interface{}{
				map[string]interface{}{"term": map[string]interface{}{"userId": excludeUser}},
			},
		},
	}, limit)
}

func (l *IndexLog) query(ctx context.Context, op string, q map[string]interface{}, limit int) ([]models.Interaction, error) {
	res, err := l.gateway.Query(ctx, l.index, map[string]interface{}{
		"query": q,
		"size":  limit,
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	})
	if err != nil {
		return nil, errors.NewInteractionLogFailureError(op, err)
	}

	out := make([]models.Interaction, 0, len(res.Hits))
	for _, h := range res.Hits {
		var ev models.Interaction
		if err := h.Decode(&ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
