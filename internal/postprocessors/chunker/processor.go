// Package chunker provides a paragraph-aware text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// DefaultTargetSize is the number of characters above which a chunk is closed.
const DefaultTargetSize = domain.DefaultChunkTargetChars

// DefaultChunkOverlap is the number of characters carried into the next chunk.
const DefaultChunkOverlap = domain.DefaultChunkOverlapChars

// DefaultMinSize is the length below which chunks are dropped.
const DefaultMinSize = domain.DefaultMinChunkChars

// paragraphBreak separates paragraphs in normalised text.
var paragraphBreak = regexp.MustCompile(`\n\n+`)

// Processor splits document content into chunks along paragraph boundaries.
// Paragraphs are never split, so a chunk holding a single oversized
// paragraph may exceed the target size. It implements the PostProcessor
// interface.
type Processor struct {
	targetSize int
	overlap    int
	minSize    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTargetSize sets the target chunk size in characters.
func WithTargetSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.targetSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// Zero disables overlap.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinSize sets the minimum chunk size in characters.
func WithMinSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.minSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		targetSize: DefaultTargetSize,
		overlap:    DefaultChunkOverlap,
		minSize:    DefaultMinSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed target size
	if p.overlap >= p.targetSize {
		p.overlap = p.targetSize / 4
	}
	if p.minSize > p.targetSize {
		p.minSize = p.targetSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	texts := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			Source:   doc.Source,
			Position: i,
			Content:  text,
		})
	}
	return chunks, nil
}

// Split divides normalised text into ordered chunks.
//
// Paragraphs accumulate into the current chunk until adding the next one
// would pass the target size. The current chunk is then closed and the
// next one is seeded with a word-aligned tail of it, so adjacent chunks
// share up to overlap characters. Chunks shorter than the minimum size
// are dropped.
func (p *Processor) Split(text string) []string {
	var (
		chunks     []string
		current    string
		currentLen int
	)

	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if current == "" {
			current, currentLen = para, paraLen
			continue
		}

		candidateLen := currentLen + 2 + paraLen
		if candidateLen <= p.targetSize {
			current += "\n\n" + para
			currentLen = candidateLen
			continue
		}

		chunks = append(chunks, current)
		if tail := overlapTail(current, p.overlap); tail != "" {
			current = tail + "\n\n" + para
			currentLen = utf8.RuneCountInString(tail) + 2 + paraLen
		} else {
			current, currentLen = para, paraLen
		}
	}

	if current != "" && currentLen >= p.minSize {
		chunks = append(chunks, current)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if utf8.RuneCountInString(c) >= p.minSize {
			kept = append(kept, c)
		}
	}
	return kept
}

// overlapTail returns the last n characters of s, moved forward to the
// next word boundary so the tail never starts mid-word. When the window
// holds no whitespace at all it is returned as is.
func overlapTail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}

	start := len(s)
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:start])
		start -= size
	}
	window := s[start:]

	// Already on a boundary: the whole chunk, or preceded by whitespace.
	if start == 0 {
		return strings.TrimSpace(window)
	}
	if r, _ := utf8.DecodeLastRuneInString(s[:start]); unicode.IsSpace(r) {
		return strings.TrimSpace(window)
	}

	idx := strings.IndexFunc(window, unicode.IsSpace)
	if idx < 0 {
		return window
	}
	return strings.TrimSpace(window[idx:])
}
