package llm

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/ddr-generator/internal/common"
)

// Sanitizer rewrites a syntactically valid document so near-misses pass the
// schema. It returns the new document and what it dropped or changed.
type Sanitizer func(doc []byte) ([]byte, []string, error)

// Decoded reports what it took to turn a response into the target value.
type Decoded struct {
	Applied []RepairStrategy
	Dropped []string
}

// DecodeStructured repairs raw, validates it strictly, then retries once after
// sanitize, and unmarshals into out. Every failure is a *common.MalformedResponseError
// carrying raw.
func DecodeStructured(raw string, schema map[string]any, sanitize Sanitizer, out any) (Decoded, error) {
	repaired, err := Repair(raw)
	if err != nil {
		return Decoded{}, common.NewMalformedResponseError(raw, err)
	}
	res := Decoded{Applied: repaired.Applied}
	doc := []byte(repaired.Text)

	// Validate strictly first.
	if vErr := ValidateAgainstSchema(schema, doc); vErr != nil {
		if sanitize == nil {
			return res, common.NewMalformedResponseError(raw, vErr)
		}
		cleaned, dropped, sErr := sanitize(doc)
		if sErr != nil {
			return res, common.NewMalformedResponseError(raw, fmt.Errorf("sanitize failed: %w", sErr))
		}
		if err := ValidateAgainstSchema(schema, cleaned); err != nil {
			return res, common.NewMalformedResponseError(raw, err)
		}
		doc = cleaned
		res.Dropped = dropped
	}

	if err := json.Unmarshal(doc, out); err != nil {
		return res, common.NewMalformedResponseError(raw, fmt.Errorf("unmarshal: %w", err))
	}
	return res, nil
}
