package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects v into a JSON Schema map. Fields without omitempty are
// required and unknown properties are rejected, so the same map serves as the
// prompt hint and as the local validator.
func SchemaFor(v any) map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(v)
	s.Version = ""

	b, err := json.Marshal(s)
	if err != nil {
		panic("llm: marshal reflected schema: " + err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic("llm: decode reflected schema: " + err.Error())
	}
	return m
}

// SchemaJSON renders a schema for inclusion in a prompt.
func SchemaJSON(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return string(b)
}
