package util

import (
	"fmt"

	"github.com/parleychat/parley/core"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateParameters validates tool-call arguments against a schema from the
// restricted JSON-Schema subset. Extra fields not covered by the schema are
// allowed; missing required fields and type mismatches are not.
func ValidateParameters(params map[string]any, schema *core.Schema) error {
	if schema == nil {
		return nil
	}

	for _, fieldName := range schema.Required {
		if _, exists := params[fieldName]; !exists {
			return &ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
			}
		}
	}

	for fieldName, value := range params {
		prop, exists := schema.Properties[fieldName]
		if !exists || prop == nil {
			continue // Allow extra fields
		}
		if !isValidType(value, prop.Type) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", prop.Type, value),
			}
		}
		if len(prop.Enum) > 0 {
			s, ok := value.(string)
			if !ok || !containsString(prop.Enum, s) {
				return &ValidationError{
					Field:   fieldName,
					Value:   value,
					Message: fmt.Sprintf("value not in enum %v", prop.Enum),
				}
			}
		}
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// isValidType checks if a value is valid according to the expected JSON schema type.
func isValidType(value any, expectedType string) bool {
	if value == nil {
		return true // nil is valid for any type
	}

	switch expectedType {
	case core.SchemaString:
		_, ok := value.(string)
		return ok
	case core.SchemaInteger:
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling often produces float64 for numbers
			return v == float64(int64(v))
		}
		return false
	case core.SchemaNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case core.SchemaBoolean:
		_, ok := value.(bool)
		return ok
	case core.SchemaArray:
		_, ok := value.([]any)
		return ok
	case core.SchemaObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		return true // Unknown types are assumed valid
	}
}
