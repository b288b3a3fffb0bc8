package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

var (
	sectionSynonyms = map[string]string{
		"property_issue_summary": "summary",
		"observations":           "area_observations",
		"area_wise_observations": "area_observations",
		"root_cause":             "probable_root_cause",
		"severity":               "severity_assessment",
		"actions":                "recommended_actions",
		"recommendations":        "recommended_actions",
		"notes":                  "additional_notes",
		"missing_info":           "missing_information",
		"missing_or_unclear":     "missing_information",
	}
	listSections = []string{"recommended_actions", "additional_notes", "missing_information"}
)

// Sanitize coerces a report response onto the schema:
//   - renames common section synonyms
//   - turns null or missing sections into "" or []
//   - wraps single strings in lists where a list is expected
//   - maps severity synonyms ("Not Available" and friends) onto the enum
//   - drops unknown keys and incomplete observation or severity rows
func Sanitize(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: response is not an object")
	}
	var dropped []string

	for from, to := range sectionSynonyms {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
				dropped = append(dropped, from+"->"+to)
			}
			delete(m, from)
		}
	}

	for _, k := range []string{"summary", "probable_root_cause"} {
		s, _ := m[k].(string)
		m[k] = strings.TrimSpace(s)
	}
	for _, k := range listSections {
		m[k] = stringList(m[k])
	}

	var obs []any
	for i, r := range asList(m["area_observations"]) {
		rec, ok := r.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("area_observations[%d](type)", i))
			continue
		}
		area := firstString(rec, "area", "area_name")
		if area == "" {
			dropped = append(dropped, fmt.Sprintf("area_observations[%d](no area)", i))
			continue
		}
		obs = append(obs, map[string]any{
			"area":                area,
			"inspection_findings": stringList(rec["inspection_findings"]),
			"thermal_findings":    stringList(rec["thermal_findings"]),
			"analysis":            firstString(rec, "analysis", "notes"),
		})
	}
	m["area_observations"] = nonNil(obs)

	var sev []any
	for i, r := range asList(m["severity_assessment"]) {
		rec, ok := r.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("severity_assessment[%d](type)", i))
			continue
		}
		area := firstString(rec, "area", "area_name")
		if area == "" {
			dropped = append(dropped, fmt.Sprintf("severity_assessment[%d](no area)", i))
			continue
		}
		raw := firstString(rec, "severity", "level")
		level, known := constants.CanonicalSeverity(raw)
		if !known {
			dropped = append(dropped, fmt.Sprintf("severity_assessment[%d].severity(%q->Unknown)", i, raw))
		}
		sev = append(sev, map[string]any{
			"area":      area,
			"severity":  string(level),
			"reasoning": firstString(rec, "reasoning", "reason"),
		})
	}
	m["severity_assessment"] = nonNil(sev)

	for k := range m {
		if _, ok := responseSchemaKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

var responseSchemaKeys = map[string]struct{}{
	"summary": {}, "area_observations": {}, "probable_root_cause": {}, "severity_assessment": {},
	"recommended_actions": {}, "additional_notes": {}, "missing_information": {},
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func nonNil(l []any) []any {
	if l == nil {
		return []any{}
	}
	return l
}

func stringList(v any) []any {
	out := []any{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func firstString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
