// Package heading provides a post-processor that guesses section headings for chunks.
package heading

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

const (
	// scanLines is how many leading lines of a chunk are examined.
	scanLines = 6

	minHeadingLen = 3
	maxHeadingLen = 80

	// minSingleWordLen rejects short single-word labels like "Note".
	minSingleWordLen = 6
)

// Processor fills Chunk.Heading with a best-guess label.
// A guessed heading is optional metadata and may be wrong.
type Processor struct{}

// New creates a new heading processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "heading"
}

// Process sets the heading of each chunk. Chunks are copied, never modified in place.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Heading = Guess(c.Content)
		out[i] = c
	}
	return out, nil
}

// Guess returns the first of the leading lines of text that looks like a
// heading, or nil if none qualifies.
func Guess(text string) *string {
	lines := strings.SplitN(text, "\n", scanLines+1)
	if len(lines) > scanLines {
		lines = lines[:scanLines]
	}

	for _, line := range lines {
		t := strings.TrimSpace(line)
		if qualifies(t) {
			return &t
		}
	}
	return nil
}

func qualifies(t string) bool {
	n := utf8.RuneCountInString(t)
	if n < minHeadingLen || n > maxHeadingLen {
		return false
	}
	if strings.HasSuffix(t, ".") {
		return false
	}
	if first, _ := utf8.DecodeRuneInString(t); !unicode.IsUpper(first) {
		return false
	}

	switch words := len(strings.Fields(t)); {
	case words >= 2:
		return true
	case words == 1:
		return n >= minSingleWordLen
	default:
		return false
	}
}
