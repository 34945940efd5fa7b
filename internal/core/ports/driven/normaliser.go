package driven

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// Normaliser cleans extracted text of layout artifacts.
// Implementations must be deterministic and free of side effects.
type Normaliser interface {
	// Normalise turns extracted pages into a single cleaned document.
	Normalise(ctx context.Context, doc *domain.SourceDocument) (*domain.Document, error)
}
