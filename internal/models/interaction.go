package models

import "time"

type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionClick    InteractionType = "click"
	InteractionPurchase InteractionType = "purchase"
	InteractionLike     InteractionType = "like"
	InteractionShare    InteractionType = "share"
)

var interactionWeights = map[InteractionType]float64{
	InteractionPurchase: 1.0,
	InteractionLike:     0.8,
	InteractionShare:    0.6,
	InteractionClick:    0.4,
	InteractionView:     0.2,
}

// Valid reports whether t is one of the recordable interaction types.
func (t InteractionType) Valid() bool {
	_, ok := interactionWeights[t]
	return ok
}

// Weight is the preference signal strength of t. Unknown types weigh 0.1.
func (t InteractionType) Weight() float64 {
	if w, ok := interactionWeights[t]; ok {
		return w
	}
	return 0.1
}

// HighValue reports whether t expresses explicit preference.
func (t InteractionType) HighValue() bool {
	return t == InteractionPurchase || t == InteractionLike
}

// Interaction is an append-only user-item event.
type Interaction struct {
	ID              string                 `json:"id,omitempty"`
	UserID          string                 `json:"userId" validate:"required,max=128"`
	ItemID          string                 `json:"itemId" validate:"required,max=128"`
	ItemType        DocumentType           `json:"itemType" validate:"required"`
	InteractionType InteractionType        `json:"interactionType" validate:"required,oneof=view click purchase like share"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
