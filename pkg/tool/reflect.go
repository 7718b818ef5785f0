package tool

import (
	"github.com/invopop/jsonschema"
)

// SchemaFor derives a parameter schema from a Go argument struct.
// Fields without omitempty are required; descriptions come from the
// jsonschema_description tag and enums from jsonschema:"enum=...".
func SchemaFor(v interface{}) ParameterSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(v)

	schema := ParameterSchema{
		Properties: make(map[string]Property),
		Required:   append([]string(nil), s.Required...),
	}
	if s.Properties == nil {
		return schema
	}

	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		schema.Properties[pair.Key] = Property{
			Type:        prop.Type,
			Description: prop.Description,
			Enum:        prop.Enum,
			Default:     prop.Default,
		}
	}
	return schema
}
