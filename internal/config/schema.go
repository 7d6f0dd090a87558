package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce     sync.Once
	schemaJSON     []byte
	schemaCompiled *santhosh.Schema
	schemaErr      error
)

func buildSchema() {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Config{})
	schemaJSON, schemaErr = json.MarshalIndent(schema, "", "  ")
	if schemaErr != nil {
		return
	}
	schemaCompiled, schemaErr = santhosh.CompileString("yamldoctor.schema.json", string(schemaJSON))
}

// JSONSchema returns the JSON Schema for the Config struct.
func JSONSchema() ([]byte, error) {
	schemaOnce.Do(buildSchema)
	return schemaJSON, schemaErr
}

// validateSchema checks a raw configuration map against the reflected schema,
// catching unknown keys and out-of-range values before decoding.
func validateSchema(raw map[string]any) error {
	schemaOnce.Do(buildSchema)
	if schemaErr != nil {
		return fmt.Errorf("compile config schema: %w", schemaErr)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := schemaCompiled.Validate(decoded); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	return nil
}
