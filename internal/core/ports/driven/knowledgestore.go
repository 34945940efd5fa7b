package driven

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// KnowledgeStore persists enriched chunks.
// Backed by SQLite by default, or Postgres with pgvector.
type KnowledgeStore interface {
	// DeleteBySource removes every record for a source and returns how many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Insert stores a single record.
	Insert(ctx context.Context, record domain.KnowledgeRecord) error

	// InsertBatch stores records in one transaction: all or none are written.
	InsertBatch(ctx context.Context, records []domain.KnowledgeRecord) error

	// Count returns the number of records for a source, or for all sources
	// when source is empty.
	Count(ctx context.Context, source string) (int, error)

	// CountBySource returns record counts grouped by source, ordered by source.
	CountBySource(ctx context.Context) ([]domain.SourceCount, error)

	// ListBySource returns the records for a source in insertion order.
	ListBySource(ctx context.Context, source string) ([]domain.KnowledgeRecord, error)

	// Close releases resources.
	Close() error
}
