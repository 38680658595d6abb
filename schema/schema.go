// Package schema provides JSON Schema validation for incoming question payloads.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// scalar lists the JSON types accepted for the text fields of a question.
// They are coerced to strings after validation.
var scalar = []any{"string", "number", "boolean", "null"}

// QuestionCreate is the schema a POST /questions body must satisfy.
var QuestionCreate = map[string]any{
	"type":     "object",
	"required": []any{"id"},
	"properties": map[string]any{
		"id":    map[string]any{"type": []any{"integer", "string"}},
		"title": map[string]any{"type": scalar},
		"code":  map[string]any{"type": scalar},
	},
}

// QuestionPatch is the schema a PUT /questions/{id} body must satisfy.
var QuestionPatch = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":    map[string]any{"type": []any{"integer", "string"}},
		"title": map[string]any{"type": scalar},
		"code":  map[string]any{"type": scalar},
	},
}

// Validate checks a document against a JSON Schema (draft-07 subset).
// Returns nil if validation passes or the schema is nil.
//
// Supported JSON Schema keywords:
//   - type (a single name or a list of names)
//   - properties, required
func Validate(schema map[string]any, doc map[string]any) error {
	if schema == nil {
		return nil
	}
	return validateValue(schema, doc, "$")
}

func validateValue(schema map[string]any, value any, path string) error {
	if t, ok := schema["type"]; ok {
		if err := checkType(typeNames(t), value, path); err != nil {
			return err
		}
	}

	if obj, ok := value.(map[string]any); ok {
		return validateObject(schema, obj, path)
	}
	return nil
}

func typeNames(t any) []string {
	switch v := t.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		names := make([]string, 0, len(v))
		for _, n := range v {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

func checkType(expected []string, value any, path string) error {
	if len(expected) == 0 {
		return nil
	}
	actual := jsonType(value)
	for _, e := range expected {
		if e == actual {
			return nil
		}
		// "number" also accepts integer
		if e == "number" && actual == "integer" {
			return nil
		}
	}
	if len(expected) == 1 {
		return fmt.Errorf("%s: expected type %q, got %q", path, expected[0], actual)
	}
	return fmt.Errorf("%s: expected one of types %s, got %q", path, strings.Join(expected, ", "), actual)
}

// jsonType reports the JSON type of a decoded value. Whole numbers report
// "integer" so that both float64 and json.Number decoding agree.
func jsonType(v any) string {
	if v == nil {
		return "null"
	}
	switch n := v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return "integer"
		}
		return "number"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "integer"
		}
		// 3.0 and 1e2 are whole numbers too.
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return "integer"
		}
		return "number"
	case int, int32, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	if req, ok := schema["required"]; ok {
		if reqList, ok := req.([]any); ok {
			for _, r := range reqList {
				if field, ok := r.(string); ok {
					if _, exists := obj[field]; !exists {
						return fmt.Errorf("%s: missing required field %q", path, field)
					}
				}
			}
		}
	}

	propsMap, _ := schema["properties"].(map[string]any)

	// Walk fields in a stable order so the reported error does not depend on
	// map iteration.
	fields := make([]string, 0, len(propsMap))
	for field := range propsMap {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		val, exists := obj[field]
		if !exists {
			continue
		}
		ps, ok := propsMap[field].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(ps, val, path+"."+field); err != nil {
			return err
		}
	}

	return nil
}
