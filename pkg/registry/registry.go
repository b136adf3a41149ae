// Package registry describes the job task types served by the worker manager
// and validates job variables against their input schemas.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed tasks.json
var embedded []byte

// Load returns the registry compiled into the binary.
func Load() (*ActivityRegistry, error) {
	return parse(embedded)
}

// LoadRegistry reads a registry from path.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q has no taskType", a.ID)
		}
		if seen[a.TaskType] {
			return nil, fmt.Errorf("duplicate taskType %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TaskTypes lists the registered task types in registry order.
func (r *ActivityRegistry) TaskTypes() []string {
	out := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		out = append(out, a.TaskType)
	}
	return out
}

// InputValidator checks job variables against one task's input schema.
type InputValidator struct {
	taskType string
	schema   *gojsonschema.Schema
}

// Validator compiles the input schema of taskType.
func (r *ActivityRegistry) Validator(taskType string) (*InputValidator, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %q is not registered", taskType)
	}
	if len(a.InputSchema) == 0 {
		return &InputValidator{taskType: taskType}, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile input schema of %q: %w", taskType, err)
	}
	return &InputValidator{taskType: taskType, schema: schema}, nil
}

// SchemaError lists the schema violations of a job's variables, keyed by
// field path.
type SchemaError struct {
	TaskType string
	Issues   map[string]string
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for field, issue := range e.Issues {
		parts = append(parts, field+": "+issue)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s variables do not match the input schema: %s", e.TaskType, strings.Join(parts, "; "))
}

// Validate returns a *SchemaError when variables do not match the schema.
func (v *InputValidator) Validate(variables []byte) error {
	if v == nil || v.schema == nil {
		return nil
	}
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(variables))
	if err != nil {
		return &SchemaError{TaskType: v.taskType, Issues: map[string]string{"(root)": err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	issues := make(map[string]string, len(res.Errors()))
	for _, re := range res.Errors() {
		field := re.Field()
		if prop, ok := re.Details()["property"].(string); ok && re.Type() == "required" {
			field = prop
			if re.Field() != "(root)" {
				field = re.Field() + "." + prop
			}
		}
		if _, dup := issues[field]; !dup {
			issues[field] = re.Description()
		}
	}
	return &SchemaError{TaskType: v.taskType, Issues: issues}
}
