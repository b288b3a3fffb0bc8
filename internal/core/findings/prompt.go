package findings

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

// BuildSystemPrompt composes the system message for per-chunk extraction.
func BuildSystemPrompt() string {
	parts := []string{
		"You extract property inspection findings. Return ONLY JSON that matches the provided JSON Schema.",
		"Each finding names the area (room or location) exactly as the text does, describes what was observed, and assigns a severity.",
		"Severity must be one of: " + strings.Join(constants.SeverityStrings(), ", ") + ".",
		"Severity guidelines: active leakage, concealed plumbing issues or continuous water flow are High; " +
			"visible dampness, seepage or tile hollowness are Moderate; cosmetic or minor wear is Low; use Unknown when the text gives no basis.",
		"Thermal readings that are not mapped to a named area use the area 'Unmapped thermal reading'.",
		"Only report a root_cause when the text states it. Do not invent facts.",
		"List anything the text refers to but does not provide under 'missing_info'.",
		"No markdown fences, no comments, no trailing commas.",
		"Never output null. If there are no findings, return an empty 'findings' list.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages one chunk with its source and position.
func BuildUserPrompt(source constants.SourceKind, index, total int, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SOURCE: %s\n", source)
	fmt.Fprintf(&b, "CHUNK: %d of %d\n", index+1, total)
	b.WriteString("JSON Schema:\n")
	b.WriteString(llm.SchemaJSON(responseSchema))
	b.WriteString("\n\nTEXT:\n")
	b.WriteString(text)
	return b.String()
}
