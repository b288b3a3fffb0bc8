package findings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

// UnknownArea labels findings the model reported without a location.
const UnknownArea = "Unknown Area"

var (
	findingsSynonyms = []string{"areas", "issues", "observations", "items"}
	fieldSynonyms    = map[string]string{
		"area_name":   "area",
		"location":    "area",
		"room":        "area",
		"finding":     "description",
		"issue":       "description",
		"observation": "description",
		"quote":       "evidence",
		"cause":       "root_cause",
		"rootcause":   "root_cause",
	}
	allowedRecordKeys = map[string]struct{}{
		"area": {}, "description": {}, "severity": {}, "evidence": {}, "root_cause": {},
	}
)

// Sanitize normalizes a chunk response so near-misses can pass the schema:
//   - renames common synonyms for the findings list and record fields
//   - maps severity synonyms onto the enum, defaulting to Unknown
//   - trims strings and removes unknown keys
//   - drops records without a description (typically cut off by truncation)
//   - labels records without an area as UnknownArea
//   - turns a null findings list into an empty one
func Sanitize(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: response is not an object")
	}

	var dropped []string

	if _, ok := m["findings"]; !ok {
		for _, alt := range findingsSynonyms {
			if v, ok := m[alt]; ok {
				m["findings"] = v
				delete(m, alt)
				dropped = append(dropped, alt+"->findings")
				break
			}
		}
	}

	var records []any
	switch v := m["findings"].(type) {
	case []any:
		records = v
	case nil:
		dropped = append(dropped, "findings(null)")
	default:
		return nil, dropped, fmt.Errorf("sanitize: findings is %T, not a list", v)
	}

	clean := make([]any, 0, len(records))
	for i, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("findings[%d](type)", i))
			continue
		}
		for from, to := range fieldSynonyms {
			if v, ok := rec[from]; ok {
				if _, exists := rec[to]; !exists {
					rec[to] = v
				}
				delete(rec, from)
			}
		}
		for k := range rec {
			if _, ok := allowedRecordKeys[k]; !ok {
				delete(rec, k)
				dropped = append(dropped, fmt.Sprintf("findings[%d].%s(unknown)", i, k))
			}
		}
		for _, k := range []string{"area", "description", "evidence", "root_cause"} {
			s, _ := rec[k].(string)
			s = strings.TrimSpace(s)
			if s == "" {
				delete(rec, k)
				continue
			}
			rec[k] = s
		}
		if _, ok := rec["description"]; !ok {
			dropped = append(dropped, fmt.Sprintf("findings[%d](no description)", i))
			continue
		}
		if _, ok := rec["area"]; !ok {
			rec["area"] = UnknownArea
			dropped = append(dropped, fmt.Sprintf("findings[%d].area(missing->%s)", i, UnknownArea))
		}
		raw, _ := rec["severity"].(string)
		sev, known := constants.CanonicalSeverity(raw)
		if !known {
			dropped = append(dropped, fmt.Sprintf("findings[%d].severity(%q->Unknown)", i, raw))
		}
		rec["severity"] = string(sev)
		clean = append(clean, rec)
	}
	m["findings"] = clean

	switch v := m["missing_info"].(type) {
	case nil:
		delete(m, "missing_info")
	case []any:
		notes := make([]any, 0, len(v))
		for _, n := range v {
			if s, ok := n.(string); ok && strings.TrimSpace(s) != "" {
				notes = append(notes, strings.TrimSpace(s))
			}
		}
		m["missing_info"] = notes
	case string:
		if s := strings.TrimSpace(v); s != "" {
			m["missing_info"] = []any{s}
		} else {
			delete(m, "missing_info")
		}
	default:
		delete(m, "missing_info")
		dropped = append(dropped, "missing_info(type)")
	}

	for k := range m {
		if k != "findings" && k != "missing_info" {
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
