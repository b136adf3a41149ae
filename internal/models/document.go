package models

import "time"

// DocumentType discriminates the document wire shape.
type DocumentType string

const (
	DocumentTypeProduct DocumentType = "product"
	DocumentTypeLodging DocumentType = "lodging"
	DocumentTypeService DocumentType = "service"
)

// DocumentTypes is the closed set of indexable types.
var DocumentTypes = []DocumentType{DocumentTypeProduct, DocumentTypeLodging, DocumentTypeService}

func (t DocumentType) Valid() bool {
	for _, dt := range DocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Document is an indexed, searchable unit. Type-specific fields are empty
// for types that do not carry them.
type Document struct {
	ID           string                 `json:"id"`
	Type         DocumentType           `json:"type"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	Price        *float64               `json:"price,omitempty"`
	Currency     string                 `json:"currency,omitempty"`
	Location     *GeoPoint              `json:"location,omitempty"`
	Rating       *float64               `json:"rating,omitempty"`
	ReviewCount  *int64                 `json:"reviewCount,omitempty"`
	Availability *bool                  `json:"availability,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`

	// lodging
	Amenities    []string `json:"amenities,omitempty"`
	CheckInTime  string   `json:"checkInTime,omitempty"`
	CheckOutTime string   `json:"checkOutTime,omitempty"`
	MaxGuests    *int     `json:"maxGuests,omitempty"`

	// product
	Vendor string `json:"vendor,omitempty"`
	SKU    string `json:"sku,omitempty"`
	Brand  string `json:"brand,omitempty"`
	Stock  *int64 `json:"stock,omitempty"`

	// service
	Provider        string `json:"provider,omitempty"`
	DurationMinutes *int   `json:"durationMinutes,omitempty"`
}

// RatingValue returns the rating, or 0 when unrated.
func (d *Document) RatingValue() float64 {
	if d.Rating == nil {
		return 0
	}
	return *d.Rating
}

// Popularity is rating × reviewCount.
func (d *Document) Popularity() float64 {
	if d.Rating == nil || d.ReviewCount == nil {
		return 0
	}
	return *d.Rating * float64(*d.ReviewCount)
}

// Recency returns UpdatedAt, falling back to CreatedAt.
func (d *Document) Recency() time.Time {
	if d.UpdatedAt.IsZero() {
		return d.CreatedAt
	}
	return d.UpdatedAt
}
