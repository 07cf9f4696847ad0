package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the generated config schema.
const SchemaID = "https://github.com/ormasoftchile/clickcheck/schemas/config-v0.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from
// the Config struct using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Config{})
	s.ID = SchemaID
	s.Title = "clickcheck configuration v0"
	s.Description = "Schema for clickcheck harness configuration YAML documents"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
