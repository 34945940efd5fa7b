package driving

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// IngestionService turns configured sources into stored knowledge records.
type IngestionService interface {
	// Preview extracts, normalises and chunks a source and returns a sample.
	// It never touches the store or the embedding service.
	Preview(ctx context.Context, source domain.SourceConfig) (*domain.SourceReport, error)

	// Ingest replaces every stored record for the source with freshly
	// enriched chunks. Batch failures are reported, not returned.
	Ingest(ctx context.Context, source domain.SourceConfig) (*domain.SourceReport, error)

	// Run processes sources one at a time. Sources that cannot be read or
	// chunked are reported and skipped; cancellation and store failures
	// abort. In live mode the report carries a fresh store tally.
	Run(ctx context.Context, sources []domain.SourceConfig, preview bool) (*domain.RunReport, error)

	// Tally returns the stored record counts grouped by source, and the total.
	Tally(ctx context.Context) ([]domain.SourceCount, int, error)
}

// BatchProgress describes one finished embedding batch.
type BatchProgress struct {
	// Source is the source label.
	Source string

	// Batch is the 1-based batch number.
	Batch int

	// Batches is the total number of batches.
	Batches int

	// Stored is the running count of stored records for the source.
	Stored int

	// Total is the number of chunks for the source.
	Total int

	// Err is non-nil when the batch was skipped.
	Err error
}
