// Package chunk splits document text into bounded chunks for LLM extraction.
//
// Splitting strategy, per chunk:
//  1. Cut after the last paragraph break (double newline) inside the window
//  2. Otherwise cut after the last sentence end in the second half of the window
//  3. Otherwise hard-cut at the window size
//
// Chunks never overlap and never drop characters, so concatenating them in
// order reproduces the input exactly.
package chunk

import (
	"unicode"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// DefaultChunkSize is the maximum chunk length in runes.
const DefaultChunkSize = 4000

// Chunker splits text into chunks of at most size runes.
type Chunker struct {
	size int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in runes. Non-positive values keep the default.
func WithChunkSize(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.size = n
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int {
	return c.size
}

// Split divides text into ordered chunks tagged with source.
func (c *Chunker) Split(source constants.SourceKind, text string) []entity.Chunk {
	if text == "" {
		return nil
	}
	runes := []rune(text)

	var chunks []entity.Chunk
	for pos := 0; pos < len(runes); {
		end := len(runes)
		if end-pos > c.size {
			end = pos + cutPoint(runes[pos:pos+c.size])
		}
		chunks = append(chunks, entity.Chunk{
			Source: source,
			Index:  len(chunks),
			Text:   string(runes[pos:end]),
			Offset: pos,
			Length: end - pos,
		})
		pos = end
	}
	return chunks
}

// Apply chunks the document text in place.
func (c *Chunker) Apply(doc *entity.SourceDocument) {
	doc.Chunks = c.Split(doc.Kind, doc.Text)
}

// cutPoint returns how many runes of a full window belong to the current chunk.
func cutPoint(window []rune) int {
	n := len(window)

	for i := n - 2; i >= 1; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return i + 2
		}
	}

	for j := n - 2; j >= n/2; j-- {
		if isSentenceEnd(window[j]) && unicode.IsSpace(window[j+1]) {
			return j + 2
		}
	}

	return n
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
