// Package tokens provides a post-processor that estimates token counts for chunks.
package tokens

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// DefaultCharsPerToken is the ratio used when none is configured.
const DefaultCharsPerToken = domain.DefaultCharsPerToken

// Processor fills Chunk.TokenEstimate.
type Processor struct {
	charsPerToken int
}

// Option configures the tokens processor.
type Option func(*Processor)

// WithCharsPerToken sets the characters-per-token ratio.
func WithCharsPerToken(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.charsPerToken = n
		}
	}
}

// New creates a new tokens processor.
func New(opts ...Option) *Processor {
	p := &Processor{charsPerToken: DefaultCharsPerToken}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tokens"
}

// Process sets the token estimate of each chunk.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.TokenEstimate = Estimate(c.Content, p.charsPerToken)
		out[i] = c
	}
	return out, nil
}

// Estimate approximates the number of tokens in text. It is a cheap proxy
// for embedding cost and always returns at least 1.
func Estimate(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return max(1, utf8.RuneCountInString(text)/charsPerToken)
}
