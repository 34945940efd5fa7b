// Package extractors routes documents to the text extractor for their format.
package extractors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
	"github.com/custodia-labs/kbingest/internal/extractors/office"
	"github.com/custodia-labs/kbingest/internal/extractors/pdf"
	"github.com/custodia-labs/kbingest/internal/logger"
)

// Ensure Router implements the interface.
var _ driven.TextExtractor = (*Router)(nil)

// Router dispatches to the first extractor that supports a path.
type Router struct {
	extractors []driven.TextExtractor
}

// NewRouter creates a router over the given extractors, tried in order.
func NewRouter(extractors ...driven.TextExtractor) *Router {
	return &Router{extractors: extractors}
}

// NewDefaultRouter creates a router with the built-in PDF and office extractors.
func NewDefaultRouter() *Router {
	return NewRouter(pdf.New(), office.New())
}

// Supports returns true if any extractor handles the path.
func (r *Router) Supports(path string) bool {
	return r.pick(path) != nil
}

// Extract checks the document exists and hands it to the matching extractor.
func (r *Router) Extract(ctx context.Context, path string) (*domain.SourceDocument, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingResource, path)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	ext := r.pick(path)
	if ext == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	logger.Debug("extracting %s (%d bytes)", path, info.Size())
	return ext.Extract(ctx, path)
}

func (r *Router) pick(path string) driven.TextExtractor {
	for _, e := range r.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}
