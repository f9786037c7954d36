package document

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes Position as its wire form, a pair of integers.
func (Position) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "integer"},
		MinItems:    uint64Ptr(2),
		MaxItems:    uint64Ptr(2),
		Description: "Canvas coordinate [x, y]",
	}
}

// Schema returns the JSON Schema of Document.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            false,
	}
	s := reflector.Reflect(&Document{})
	s.ID = "https://github.com/GoCodeAlone/workflowgen/document.schema.json"
	s.Title = "Workflow document"
	return s
}

// SchemaJSON returns the indented JSON encoding of Schema.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	return data, nil
}

func uint64Ptr(v uint64) *uint64 { return &v }
