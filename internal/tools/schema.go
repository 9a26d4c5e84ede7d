package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives a parameter schema from an argument struct. Fields
// without `omitempty` are required; descriptions, enums and defaults come
// from jsonschema struct tags.
func GenerateSchema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	s := r.Reflect(v)
	s.Version = ""
	s.Definitions = nil
	return s
}

// ValidateArgs checks model-supplied arguments against a parameter schema:
// required fields, primitive JSON types and enum membership. Unknown fields
// are ignored. A null optional field counts as absent.
func ValidateArgs(args map[string]interface{}, schema *jsonschema.Schema) error {
	if schema == nil {
		return nil
	}
	for _, field := range schema.Required {
		if v, ok := args[field]; !ok || v == nil {
			return fmt.Errorf("missing required field: %s", field)
		}
	}
	if schema.Properties == nil {
		return nil
	}
	for key, value := range args {
		prop, ok := schema.Properties.Get(key)
		if !ok || prop == nil || value == nil {
			continue
		}
		if err := validateType(value, prop.Type); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		if len(prop.Enum) > 0 && !inEnum(value, prop.Enum) {
			return fmt.Errorf("field %s: %v is not one of %v", key, value, prop.Enum)
		}
	}
	return nil
}

func validateType(value interface{}, expected string) error {
	switch expected {
	case "":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if _, ok := value.(float64); ok {
			return nil
		}
		if n, ok := value.(json.Number); ok {
			if _, err := n.Float64(); err == nil {
				return nil
			}
		}
	case "integer":
		if f, ok := value.(float64); ok && math.Trunc(f) == f {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]interface{}); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]interface{}); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %s", expected, jsonTypeName(value))
}

func inEnum(value interface{}, enum []any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func jsonTypeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

// decodeArgs converts validated arguments into a typed argument struct.
func decodeArgs[T any](input map[string]interface{}) (T, error) {
	var out T
	b, err := json.Marshal(input)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	return out, nil
}
