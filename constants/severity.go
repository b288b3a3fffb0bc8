package constants

import (
	"strings"
)

// Severity is the canonical severity attached to a finding.
type Severity string

const (
	SeverityHigh     Severity = "High"
	SeverityModerate Severity = "Moderate"
	SeverityLow      Severity = "Low"
	SeverityUnknown  Severity = "Unknown"
)

var allSeverities = []Severity{
	SeverityHigh,
	SeverityModerate,
	SeverityLow,
	SeverityUnknown,
}

// SeverityStrings returns the enum values in schema order.
func SeverityStrings() []string {
	result := make([]string, len(allSeverities))
	for i, s := range allSeverities {
		result[i] = string(s)
	}
	return result
}

// Rank orders severities for "highest wins" comparisons. Unknown ranks lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Known reports whether s carries an actual assessment.
func (s Severity) Known() bool {
	return s.Rank() > 0
}

// CanonicalSeverity maps free-form model output onto the enum.
// The second return value is false when the input was not recognized and Unknown was assumed.
func CanonicalSeverity(input string) (Severity, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return SeverityUnknown, true
	}

	synonyms := map[string]Severity{
		"critical":      SeverityHigh,
		"severe":        SeverityHigh,
		"major":         SeverityHigh,
		"medium":        SeverityModerate,
		"moderate":      SeverityModerate,
		"minor":         SeverityLow,
		"cosmetic":      SeverityLow,
		"not available": SeverityUnknown,
		"n/a":           SeverityUnknown,
		"na":            SeverityUnknown,
		"none":          SeverityUnknown,
		"unspecified":   SeverityUnknown,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allSeverities {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}
	return SeverityUnknown, false
}
