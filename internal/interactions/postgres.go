package interactions

import (
	"context"
	"database/sql"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	item_id          TEXT NOT NULL,
	item_type        TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	occurred_at      TIMESTAMPTZ NOT NULL,
	metadata         JSONB
);
CREATE INDEX IF NOT EXISTS interactions_user_idx ON interactions (user_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS interactions_item_idx ON interactions (item_id, occurred_at DESC);`

const selectColumns = `SELECT id, user_id, item_id, item_type, interaction_type, occurred_at, metadata FROM interactions`

// PostgresLog keeps interactions in a single append-only table.
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

// EnsureSchema creates the table and its indexes when missing.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return errors.NewInteractionLogFailureError("ensure schema", err)
	}
	return nil
}

func (l *PostgresLog) Append(ctx context.Context, ev models.Interaction) error {
	var meta []byte
	if len(ev.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(ev.Metadata); err != nil {
			return errors.NewValidationError("metadata is not encodable", err.Error())
		}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, item_id, item_type, interaction_type, occurred_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.UserID, ev.ItemID, string(ev.ItemType), string(ev.InteractionType), ev.Timestamp, meta,
	)
	if err != nil {
		return errors.NewInteractionLogFailureError("append", err)
	}
	return nil
}

func (l *PostgresLog) QueryByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	rows, err := l.db.QueryContext(ctx, selectColumns+`
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, errors.NewInteractionLogFailureError("query by user", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func (l *PostgresLog) QueryByItems(ctx context.Context, itemIDs []string, excludeUser string, limit int) ([]models.Interaction, error) {
	if len(itemIDs) == 0 {
		return []models.Interaction{}, nil
	}
	rows, err := l.db.QueryContext(ctx, selectColumns+`
		WHERE item_id = ANY($1) AND user_id <> $2
		ORDER BY occurred_at DESC
		LIMIT $3`, pq.Array(itemIDs), excludeUser, limit)
	if err != nil {
		return nil, errors.NewInteractionLogFailureError("query by items", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]models.Interaction, error) {
	out := []models.Interaction{}
	for rows.Next() {
		var (
			ev              models.Interaction
			itemType, iType string
			occurredAt      time.Time
			meta            []byte
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ItemID, &itemType, &iType, &occurredAt, &meta); err != nil {
			return nil, errors.NewInteractionLogFailureError("scan", err)
		}
		ev.ItemType = models.DocumentType(itemType)
		ev.InteractionType = models.InteractionType(iType)
		ev.Timestamp = occurredAt.UTC()
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &ev.Metadata)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInteractionLogFailureError("scan", err)
	}
	return out, nil
}
