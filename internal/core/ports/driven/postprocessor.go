package driven

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// PostProcessor is one stage of chunk production.
//
// The first stage of a chain receives nil chunks and splits doc.Content
// into new ones. Later stages receive the previous stage's chunks and
// return annotated or filtered copies; they must not reorder them.
type PostProcessor interface {
	// Name identifies the stage in the processor registry and in errors.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns one normalised document into ordered chunks
// with contiguous positions.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
