package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/internal/common"
)

type sample struct {
	Name  string   `json:"name" jsonschema:"minLength=1"`
	Level string   `json:"level" jsonschema:"enum=low,enum=high"`
	Tags  []string `json:"tags"`
	Note  string   `json:"note,omitempty"`
}

func lowerLevel(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}
	var dropped []string
	if v, ok := m["level"].(string); ok && v == "HIGH" {
		m["level"] = "high"
		dropped = append(dropped, "level(case)")
	}
	if m["tags"] == nil {
		m["tags"] = []any{}
		dropped = append(dropped, "tags(null)")
	}
	out, err := json.Marshal(m)
	return out, dropped, err
}

func TestSchemaForReflectsRequiredAndEnum(t *testing.T) {
	schema := SchemaFor(&sample{})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"name", "level", "tags"}, schema["required"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, []any{"low", "high"}, props["level"].(map[string]any)["enum"])
	assert.NotContains(t, schema, "$id")
	assert.Contains(t, SchemaJSON(schema), `"properties"`)
}

func TestDecodeStructured(t *testing.T) {
	schema := SchemaFor(&sample{})

	t.Run("valid", func(t *testing.T) {
		var out sample
		res, err := DecodeStructured(`{"name":"x","level":"low","tags":["a"]}`, schema, nil, &out)
		require.NoError(t, err)
		assert.Empty(t, res.Applied)
		assert.Equal(t, sample{Name: "x", Level: "low", Tags: []string{"a"}}, out)
	})

	t.Run("repaired then sanitized", func(t *testing.T) {
		var out sample
		res, err := DecodeStructured("```json\n{\"name\":\"x\",\"level\":\"HIGH\",\"tags\":null", schema, lowerLevel, &out)
		require.NoError(t, err)
		assert.Equal(t, []RepairStrategy{StrategyJSONFence, StrategyCloseStructure}, res.Applied)
		assert.ElementsMatch(t, []string{"level(case)", "tags(null)"}, res.Dropped)
		assert.Equal(t, "high", out.Level)
		assert.Empty(t, out.Tags)
	})

	t.Run("schema failure without sanitizer", func(t *testing.T) {
		raw := `{"name":"x","level":"medium","tags":[]}`
		var out sample
		_, err := DecodeStructured(raw, schema, nil, &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrMalformedLLMResponse)
		var mre *common.MalformedResponseError
		require.True(t, errors.As(err, &mre))
		assert.Equal(t, raw, mre.Raw)
	})

	t.Run("unrepairable", func(t *testing.T) {
		var out sample
		_, err := DecodeStructured("I cannot help with that.", schema, lowerLevel, &out)
		assert.ErrorIs(t, err, common.ErrMalformedLLMResponse)
		assert.ErrorIs(t, err, ErrUnrepairable)
	})

	t.Run("sanitizer cannot fix it", func(t *testing.T) {
		var out sample
		_, err := DecodeStructured(`{"name":"","level":"low","tags":[]}`, schema, lowerLevel, &out)
		assert.ErrorIs(t, err, common.ErrMalformedLLMResponse)
	})
}
