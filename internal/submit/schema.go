package submit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/claims-intake/constants"
)

// ClaimSchema describes the field set accepted by the claims system.
func ClaimSchema() map[string]any {
	nonEmpty := map[string]any{"type": "string", "minLength": 1, "pattern": `\S`}
	enum := make([]any, 0, 3)
	for _, ct := range constants.ClaimTypesAsStrings() {
		enum = append(enum, ct)
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"claimantName", "village", "claimType", "coordinates"},
		"properties": map[string]any{
			"claimantName": nonEmpty,
			"village":      nonEmpty,
			"claimType":    map[string]any{"type": "string", "enum": enum},
			"coordinates":  nonEmpty,
		},
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func claimSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileSchema(ClaimSchema())
	})
	return compiled, compileErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("claim.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("claim.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates data against the claim schema.
func ValidateJSONAgainstSchema(data []byte) error {
	schema, err := claimSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
