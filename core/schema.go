package core

// Schema is the restricted JSON-Schema subset exposed to model providers for
// tool parameters and structured (JSON mode) generation.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Schema type names covered by the subset.
const (
	SchemaObject  = "object"
	SchemaArray   = "array"
	SchemaString  = "string"
	SchemaNumber  = "number"
	SchemaInteger = "integer"
	SchemaBoolean = "boolean"
	SchemaNull    = "null"
)

// AsMap converts the schema into the generic map shape the provider SDKs
// expect for function parameters.
func (s *Schema) AsMap() map[string]any {
	if s == nil {
		return nil
	}
	m := map[string]any{"type": s.Type}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.AsMap()
		}
		m["properties"] = props
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		m["required"] = req
	}
	if s.Items != nil {
		m["items"] = s.Items.AsMap()
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		m["enum"] = enum
	}
	return m
}
