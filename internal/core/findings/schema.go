package findings

import (
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

// findingRecord is one finding as the model is asked to return it.
type findingRecord struct {
	Area        string `json:"area" jsonschema:"minLength=1,description=Room or location the finding refers to"`
	Description string `json:"description" jsonschema:"description=What was observed"`
	Severity    string `json:"severity" jsonschema:"enum=High,enum=Moderate,enum=Low,enum=Unknown"`
	Evidence    string `json:"evidence,omitempty" jsonschema:"description=Short supporting quote from the text"`
	RootCause   string `json:"root_cause,omitempty" jsonschema:"description=Cause only when the text states it"`
}

// chunkResponse is the whole document expected for one chunk.
type chunkResponse struct {
	Findings    []findingRecord `json:"findings"`
	MissingInfo []string        `json:"missing_info,omitempty"`
}

var responseSchema = llm.SchemaFor(&chunkResponse{})

// ResponseSchema returns the JSON Schema chunk responses are validated against.
func ResponseSchema() map[string]any {
	return responseSchema
}
