package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAgainstSchema(t *testing.T) {
	schema := SchemaFor(&sample{})

	tests := []struct {
		name    string
		doc     string
		wantErr []string
	}{
		{name: "valid", doc: `{"name":"roof","level":"low","tags":[]}`},
		{name: "missing field", doc: `{"name":"roof","level":"low"}`, wantErr: []string{"tags"}},
		{name: "bad enum and empty name", doc: `{"name":"","level":"HIGH","tags":[]}`, wantErr: []string{"/name", "/level"}},
		{name: "unknown property", doc: `{"name":"roof","level":"low","tags":[],"extra":1}`, wantErr: []string{"extra"}},
		{name: "not json", doc: `{"name":`, wantErr: []string{"unmarshal data"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgainstSchema(schema, []byte(tt.doc))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestCompileSchemaIsCached(t *testing.T) {
	schema := SchemaFor(&sample{})

	first, err := compileSchema(schema)
	require.NoError(t, err)
	second, err := compileSchema(SchemaFor(&sample{}))
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := compileSchema(map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestCompileSchemaRejectsInvalidSchema(t *testing.T) {
	_, err := compileSchema(map[string]any{"type": 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile schema")

	err = ValidateAgainstSchema(map[string]any{"type": 7}, []byte(`{}`))
	assert.Error(t, err)
}
