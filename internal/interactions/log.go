// Package interactions is the append-only log of user-item events and the
// cached per-user history read by the recommenders.
package interactions

import (
	"context"

	"discovery-workers/internal/models"
)

// Log is the durable interaction store. Reads return newest first.
type Log interface {
	Append(ctx context.Context, ev models.Interaction) error
	QueryByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
	// QueryByItems returns events on any of itemIDs by users other than
	// excludeUser.
	QueryByItems(ctx context.Context, itemIDs []string, excludeUser string, limit int) ([]models.Interaction, error)
}
