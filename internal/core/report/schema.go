package report

import (
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

type observationRecord struct {
	Area               string   `json:"area" jsonschema:"minLength=1"`
	InspectionFindings []string `json:"inspection_findings"`
	ThermalFindings    []string `json:"thermal_findings"`
	Analysis           string   `json:"analysis"`
}

type severityRecord struct {
	Area      string `json:"area" jsonschema:"minLength=1"`
	Severity  string `json:"severity" jsonschema:"enum=High,enum=Moderate,enum=Low,enum=Unknown"`
	Reasoning string `json:"reasoning"`
}

// reportResponse holds the narrative sections the model writes.
type reportResponse struct {
	Summary            string              `json:"summary" jsonschema:"minLength=1"`
	AreaObservations   []observationRecord `json:"area_observations"`
	ProbableRootCause  string              `json:"probable_root_cause"`
	SeverityAssessment []severityRecord    `json:"severity_assessment"`
	RecommendedActions []string            `json:"recommended_actions"`
	AdditionalNotes    []string            `json:"additional_notes"`
	MissingInformation []string            `json:"missing_information"`
}

var responseSchema = llm.SchemaFor(&reportResponse{})
