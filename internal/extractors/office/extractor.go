// Package office extracts text from word-processor, web and plain-text
// documents. Rich formats go through docconv; plain text is read directly.
package office

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// converted maps extensions handled by docconv to their MIME type.
var converted = map[string]string{
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":   "application/msword",
	".odt":   "application/vnd.oasis.opendocument.text",
	".rtf":   "application/rtf",
	".pages": "application/vnd.apple.pages",
	".html":  "text/html",
	".htm":   "text/html",
	".xml":   "text/xml",
}

// plain lists extensions read as UTF-8 text.
var plain = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// Extractor reads non-PDF documents. Formats without page structure
// produce a single page; plain text is split on form feeds.
type Extractor struct {
	readability bool
}

// Option configures the extractor.
type Option func(*Extractor)

// WithReadability enables docconv's readability filter for HTML, which
// drops navigation and boilerplate.
func WithReadability(enabled bool) Option {
	return func(e *Extractor) {
		e.readability = enabled
	}
}

// New creates an office document extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports returns true for the rich and plain-text extensions handled here.
func (e *Extractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := converted[ext]
	return ok || plain[ext]
}

// Extract reads the document at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.SourceDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !e.Supports(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if plain[ext] {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, openError(path, err)
		}
		return &domain.SourceDocument{Path: path, Pages: strings.Split(string(data), "\f")}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	res, err := docconv.Convert(f, converted[ext], e.readability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", filepath.Base(path), err)
	}
	return &domain.SourceDocument{Path: path, Pages: []string{res.Body}}, nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrMissingResource, path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
