package validation

import (
	"embed"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"discovery-workers/internal/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// DocumentSchemas validates raw documents against the schema of their type.
type DocumentSchemas struct {
	byType map[models.DocumentType]*gojsonschema.Schema
}

// LoadDocumentSchemas compiles the embedded schema of every document type.
func LoadDocumentSchemas() (*DocumentSchemas, error) {
	ds := &DocumentSchemas{byType: make(map[models.DocumentType]*gojsonschema.Schema)}
	for _, dt := range models.DocumentTypes {
		raw, err := schemaFS.ReadFile(fmt.Sprintf("schemas/%s.json", dt))
		if err != nil {
			return nil, fmt.Errorf("reading %s schema: %w", dt, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", dt, err)
		}
		ds.byType[dt] = schema
	}
	return ds, nil
}

// Validate checks raw against its type's schema. The returned string is a
// human-readable reason, empty when valid. Partial documents (updates) may
// omit required fields other than id and type.
func (ds *DocumentSchemas) Validate(raw []byte, partial bool) string {
	var head struct {
		Type models.DocumentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "document is not a JSON object: " + err.Error()
	}
	schema, ok := ds.byType[head.Type]
	if !ok {
		return fmt.Sprintf("unknown document type %q", head.Type)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return err.Error()
	}
	if result.Valid() {
		return ""
	}
	reasons := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		if partial && re.Type() == "required" {
			if prop, _ := re.Details()["property"].(string); prop != "id" && prop != "type" {
				continue
			}
		}
		reasons = append(reasons, re.String())
	}
	return strings.Join(reasons, "; ")
}
