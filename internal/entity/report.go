package entity

import (
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

// AreaObservation is the per-area narrative section of a report.
type AreaObservation struct {
	Area               string   `json:"area"`
	InspectionFindings []string `json:"inspection_findings"`
	ThermalFindings    []string `json:"thermal_findings"`
	Analysis           string   `json:"analysis"`
}

// SeverityEntry is one row of the severity assessment table.
type SeverityEntry struct {
	Area      string             `json:"area"`
	Severity  constants.Severity `json:"severity"`
	Reasoning string             `json:"reasoning"`
}

// DdrReport is the composed report. It is not modified once rendered.
type DdrReport struct {
	Title           string            `json:"title"`
	Summary         string            `json:"summary"`
	Observations    []AreaObservation `json:"observations"`
	RootCause       string            `json:"root_cause"`
	Severity        []SeverityEntry   `json:"severity"`
	Actions         []string          `json:"actions"`
	AdditionalNotes []string          `json:"additional_notes"`
	MissingInfo     []string          `json:"missing_info"`
	GeneratedAt     time.Time         `json:"generated_at"`
	InspectionFile  string            `json:"inspection_file"`
	ThermalFile     string            `json:"thermal_file"`
	Merged          MergedFindingSet  `json:"merged"`
}
