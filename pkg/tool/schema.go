package tool

// Parameter types understood by the validator
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Property describes a single parameter
type Property struct {
	Type        string        `json:"type,omitempty"`
	Description string        `json:"description,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
}

// ParameterSchema declares the parameters a tool accepts
type ParameterSchema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// JSONSchema renders the schema as a JSON Schema object document.
func (s ParameterSchema) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Properties))
	for name, prop := range s.Properties {
		p := map[string]interface{}{}
		if prop.Type != "" {
			p["type"] = prop.Type
		}
		if prop.Description != "" {
			p["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			p["enum"] = prop.Enum
		}
		if prop.Default != nil {
			p["default"] = prop.Default
		}
		properties[name] = p
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(s.Required) > 0 {
		required := make([]interface{}, len(s.Required))
		for i, name := range s.Required {
			required[i] = name
		}
		doc["required"] = required
	}
	return doc
}

// FunctionDefinition is the function part of an LLM function-calling schema
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// FunctionSchema is the LLM function-calling shape of a tool
type FunctionSchema struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionSchemaOf describes t in LLM function-calling shape
func FunctionSchemaOf(t Tool) FunctionSchema {
	return FunctionSchema{
		Type: "function",
		Function: FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema().JSONSchema(),
		},
	}
}
