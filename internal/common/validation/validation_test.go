package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/common/errors"
	"discovery-workers/internal/models"
)

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&models.Interaction{
		UserID:          "u1",
		ItemType:        models.DocumentTypeProduct,
		InteractionType: "dance",
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	se, ok := errors.As(err)
	require.True(t, ok)
	fields := se.Metadata["fields"].(map[string]interface{})
	assert.Equal(t, "is required", fields["itemId"])
	assert.Contains(t, fields["interactionType"], "must be one of")
}

func TestStructAcceptsValidRequest(t *testing.T) {
	assert.NoError(t, Struct(&models.RecommendRequest{UserID: "u1", Algorithm: models.AlgorithmHybrid}))
	assert.NoError(t, Struct(&models.RecommendRequest{ItemID: "p1"}))
}

func TestRecommendRequestNeedsUserOrItem(t *testing.T) {
	err := Struct(&models.RecommendRequest{Algorithm: models.AlgorithmContent})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSearchFacetNamesAreClosed(t *testing.T) {
	err := Struct(&models.SearchRequest{Facets: []string{"category", "brand"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "facets[1]")
}

func TestDocumentSchemas(t *testing.T) {
	ds, err := LoadDocumentSchemas()
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     string
		partial bool
		wantErr string
	}{
		{
			name: "valid lodging",
			doc:  `{"id":"l1","type":"lodging","title":"Harbour View","checkInTime":"15:00","amenities":["wifi"]}`,
		},
		{
			name: "valid product",
			doc:  `{"id":"p1","type":"product","title":"iPhone 15 Pro","price":999,"currency":"USD","stock":4}`,
		},
		{
			name:    "lodging fields on a product",
			doc:     `{"id":"p2","type":"product","title":"Case","amenities":["wifi"]}`,
			wantErr: "amenities",
		},
		{
			name:    "negative price",
			doc:     `{"id":"p3","type":"product","title":"Case","price":-1}`,
			wantErr: "price",
		},
		{
			name:    "unknown type",
			doc:     `{"id":"x","type":"vehicle","title":"Car"}`,
			wantErr: "unknown document type",
		},
		{
			name:    "missing title",
			doc:     `{"id":"p4","type":"product"}`,
			wantErr: "title",
		},
		{
			name:    "partial update may omit title",
			doc:     `{"id":"p4","type":"product","price":12.5}`,
			partial: true,
		},
		{
			name:    "partial update still needs id",
			doc:     `{"type":"product","price":12.5}`,
			partial: true,
			wantErr: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := ds.Validate([]byte(tt.doc), tt.partial)
			if tt.wantErr == "" {
				assert.Empty(t, reason)
				return
			}
			assert.Contains(t, reason, tt.wantErr)
		})
	}
}
