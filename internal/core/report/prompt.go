package report

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// RootCauseFallback replaces an empty probable root cause.
const RootCauseFallback = "Root cause not explicitly specified in the provided documents."

// ThermalUnmappedNote is the sentence the model must use for readings without an area.
const ThermalUnmappedNote = "Thermal imaging contains temperature readings; however, specific area mapping is not available, therefore direct correlation cannot be confirmed."

type promptArea struct {
	Area       string   `json:"area"`
	Sources    string   `json:"sources"`
	Severity   string   `json:"severity"`
	Inspection []string `json:"inspection_findings"`
	Thermal    []string `json:"thermal_findings"`
	RootCauses []string `json:"stated_root_causes,omitempty"`
}

type promptConflict struct {
	Area       string   `json:"area"`
	Reason     string   `json:"reason"`
	Inspection []string `json:"inspection_findings"`
	Thermal    []string `json:"thermal_findings"`
}

type promptData struct {
	Areas       []promptArea     `json:"areas"`
	Conflicts   []promptConflict `json:"conflicts"`
	Gaps        []string         `json:"gaps"`
	MissingInfo []string         `json:"missing_info"`
}

// BuildSystemPrompt composes the report writing rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You write a Detailed Diagnostic Report (DDR) from structured inspection and thermal findings. Return ONLY JSON that matches the provided JSON Schema.",
		"Do NOT invent new facts. Only state a probable root cause when the findings state one; otherwise leave 'probable_root_cause' empty.",
		"You may reason from observed findings, assign severity from described impact and suggest practical corrective actions.",
		"Severity guidelines: active leakage, concealed plumbing issues or continuous water flow are High; visible dampness, seepage or tile hollowness are Moderate; " +
			"minor cosmetic defects without moisture indication are Low; insufficient data is Unknown. Do NOT exaggerate severity.",
		"Explain severity reasoning in 2 to 4 sentences per area.",
		"For conflicts, describe both sources' findings and say the discrepancy needs on-site verification.",
		"If thermal data exists but is not area-mapped, state: \"" + ThermalUnmappedNote + "\"",
		"'summary' is 2 to 3 paragraphs on overall condition and risk. 'additional_notes' includes the limitations of a document-based assessment.",
		"Use a neutral professional tone and plain text inside strings, no markdown.",
		"No comments, no trailing commas. Never output null; use \"\" or [].",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt serializes the merged findings for the model.
func BuildUserPrompt(merged entity.MergedFindingSet) string {
	data := promptData{
		Areas:       []promptArea{},
		Conflicts:   []promptConflict{},
		Gaps:        []string{},
		MissingInfo: merged.MissingInfo,
	}
	for _, u := range merged.Unified {
		a := promptArea{Area: u.Area, Sources: string(u.Tag), Severity: string(u.Severity)}
		for _, f := range u.Members {
			if f.Source == constants.SourceThermal {
				a.Thermal = append(a.Thermal, f.Description)
			} else {
				a.Inspection = append(a.Inspection, f.Description)
			}
			if f.RootCause != "" {
				a.RootCauses = append(a.RootCauses, f.RootCause)
			}
		}
		data.Areas = append(data.Areas, a)
	}
	for _, c := range merged.Conflicts {
		pc := promptConflict{Area: c.Area, Reason: c.Reason}
		for _, f := range c.Inspection {
			pc.Inspection = append(pc.Inspection, f.Description+" (severity "+string(f.Severity)+")")
		}
		for _, f := range c.Thermal {
			pc.Thermal = append(pc.Thermal, f.Description+" (severity "+string(f.Severity)+")")
		}
		data.Conflicts = append(data.Conflicts, pc)
	}
	for _, g := range merged.Gaps {
		data.Gaps = append(data.Gaps, g.Note)
	}

	payload, _ := json.MarshalIndent(data, "", "  ")
	var b strings.Builder
	b.WriteString("JSON Schema:\n")
	b.WriteString(llm.SchemaJSON(responseSchema))
	b.WriteString("\n\nSTRUCTURED DATA:\n")
	b.Write(payload)
	return b.String()
}
