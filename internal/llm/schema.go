package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RequiredKeysSchema is the minimal object schema for a call site.
func RequiredKeysSchema(keys ...string) map[string]any {
	required := append([]string(nil), keys...)
	sort.Strings(required)
	s := map[string]any{"type": "object"}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// ValidateValue validates an already decoded JSON tree.
func ValidateValue(schemaMap map[string]any, v any) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// MissingKeys lists the keys absent from payload, in the given order.
func MissingKeys(payload map[string]any, keys []string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := payload[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
