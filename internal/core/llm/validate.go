package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiled holds one compiled schema per distinct schema document. Extraction
// validates every chunk reply against the same few schemas.
var compiled sync.Map // string -> *jsonschema.Schema

// compileSchema returns the compiled form of schema, compiling it on first use.
func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	key := string(b)
	if s, ok := compiled.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("reply.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := c.Compile("reply.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := compiled.LoadOrStore(key, s)
	return actual.(*jsonschema.Schema), nil
}

// ValidateAgainstSchema checks doc against schema. A mismatch lists every
// failing location, e.g. "/findings/0/area: missing properties".
func ValidateAgainstSchema(schema map[string]any, doc []byte) error {
	s, err := compileSchema(schema)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("json does not match schema: %s", strings.Join(leafErrors(ve), "; "))
		}
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func leafErrors(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafErrors(c)...)
	}
	return out
}
