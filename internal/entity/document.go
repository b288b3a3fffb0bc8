package entity

import (
	"github.com/joseph-ayodele/ddr-generator/constants"
)

// SourceDocument is one input report after text extraction. It is not modified after chunking.
type SourceDocument struct {
	Path   string               `json:"path"`
	Kind   constants.SourceKind `json:"kind"`
	Pages  []string             `json:"pages"`
	Text   string               `json:"text"`
	Chunks []Chunk              `json:"chunks,omitempty"`
}

// PageCount returns the number of pages read from the file.
func (d *SourceDocument) PageCount() int {
	return len(d.Pages)
}

// Chunk is a bounded slice of document text. Offset and Length count runes.
type Chunk struct {
	Source constants.SourceKind `json:"source"`
	Index  int                  `json:"index"`
	Text   string               `json:"text"`
	Offset int                  `json:"offset"`
	Length int                  `json:"length"`
}
