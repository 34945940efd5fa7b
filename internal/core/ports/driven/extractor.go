package driven

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// TextExtractor turns a document on disk into per-page plain text.
type TextExtractor interface {
	// Supports returns true if the extractor handles the file at path.
	Supports(path string) bool

	// Extract reads the document at path. The returned pages are ordered.
	// A document that does not exist yields domain.ErrMissingResource.
	Extract(ctx context.Context, path string) (*domain.SourceDocument, error)
}
