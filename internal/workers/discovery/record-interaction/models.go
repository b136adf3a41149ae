package recordinteraction

import (
	"time"

	"discovery-workers/internal/models"
)

type Input struct {
	UserID          string                 `json:"userId"`
	ItemID          string                 `json:"itemId"`
	ItemType        models.DocumentType    `json:"itemType"`
	InteractionType models.InteractionType `json:"interactionType"`
	Timestamp       *time.Time             `json:"timestamp,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func (in *Input) toInteraction() models.Interaction {
	ev := models.Interaction{
		UserID:          in.UserID,
		ItemID:          in.ItemID,
		ItemType:        in.ItemType,
		InteractionType: in.InteractionType,
		Metadata:        in.Metadata,
	}
	if in.Timestamp != nil {
		ev.Timestamp = *in.Timestamp
	}
	return ev
}

type Output struct {
	InteractionID string    `json:"interactionId"`
	RecordedAt    time.Time `json:"recordedAt"`
}
