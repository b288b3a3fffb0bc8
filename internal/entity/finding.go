package entity

import (
	"github.com/joseph-ayodele/ddr-generator/constants"
)

// Finding is a single observation extracted from one chunk of one source document.
type Finding struct {
	Area        string               `json:"area"`
	Description string               `json:"description"`
	Severity    constants.Severity   `json:"severity"`
	Source      constants.SourceKind `json:"source"`
	Evidence    string               `json:"evidence,omitempty"`
	RootCause   string               `json:"root_cause,omitempty"`
	ChunkIndex  int                  `json:"chunk_index"`
}

// DocumentFindings is the ordered finding list for one source plus the
// information the model flagged as missing while reading it.
type DocumentFindings struct {
	Source      constants.SourceKind `json:"source"`
	Findings    []Finding            `json:"findings"`
	MissingInfo []string             `json:"missing_info,omitempty"`
}

// UnifiedFinding groups agreeing findings about one area.
type UnifiedFinding struct {
	Area        string              `json:"area"`
	Tag         constants.SourceTag `json:"tag"`
	Severity    constants.Severity  `json:"severity"`
	Description string              `json:"description"`
	Members     []Finding           `json:"members"`
}

// Conflict holds both sources' raw findings for an area they disagree on.
type Conflict struct {
	Area       string    `json:"area"`
	Reason     string    `json:"reason"`
	Inspection []Finding `json:"inspection"`
	Thermal    []Finding `json:"thermal"`
}

// Members returns the inspection findings followed by the thermal findings.
func (c Conflict) Members() []Finding {
	out := make([]Finding, 0, len(c.Inspection)+len(c.Thermal))
	out = append(out, c.Inspection...)
	return append(out, c.Thermal...)
}

// Gap records an area that only one source mentions.
type Gap struct {
	Area       string               `json:"area"`
	ReportedBy constants.SourceKind `json:"reported_by"`
	Note       string               `json:"note"`
}

// MergedFindingSet is the merge output. Every input finding is a member of
// exactly one unified entry or one conflict.
type MergedFindingSet struct {
	Unified     []UnifiedFinding `json:"unified"`
	Conflicts   []Conflict       `json:"conflicts"`
	Gaps        []Gap            `json:"gaps"`
	MissingInfo []string         `json:"missing_info,omitempty"`
}

// FindingCount returns how many input findings the set accounts for.
func (m *MergedFindingSet) FindingCount() int {
	n := 0
	for _, u := range m.Unified {
		n += len(u.Members)
	}
	for _, c := range m.Conflicts {
		n += len(c.Inspection) + len(c.Thermal)
	}
	return n
}
