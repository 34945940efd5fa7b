// Package memory provides an in-memory KnowledgeStore for the service tests.
// Nothing is persisted; dry runs open no store at all.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
type KnowledgeStore struct {
	mu       sync.RWMutex
	bySource map[string][]domain.KnowledgeRecord
	ids      map[string]struct{}
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		bySource: make(map[string][]domain.KnowledgeRecord),
		ids:      make(map[string]struct{}),
	}
}

// DeleteBySource removes every record for a source.
func (s *KnowledgeStore) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.bySource[source]
	for _, r := range records {
		delete(s.ids, r.ID)
	}
	delete(s.bySource, source)
	return len(records), nil
}

// Insert stores a single record.
func (s *KnowledgeStore) Insert(ctx context.Context, record domain.KnowledgeRecord) error {
	return s.InsertBatch(ctx, []domain.KnowledgeRecord{record})
}

// InsertBatch stores records atomically: every record is validated before any is written.
func (s *KnowledgeStore) InsertBatch(_ context.Context, records []domain.KnowledgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" || r.Source == "" {
			return fmt.Errorf("%w: record needs an id and a source", domain.ErrPersistenceFailure)
		}
		if _, dup := s.ids[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", domain.ErrPersistenceFailure, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", domain.ErrPersistenceFailure, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		s.bySource[r.Source] = append(s.bySource[r.Source], r)
		s.ids[r.ID] = struct{}{}
	}
	return nil
}

// Count returns the record count for a source, or across all sources when source is empty.
func (s *KnowledgeStore) Count(_ context.Context, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if source != "" {
		return len(s.bySource[source]), nil
	}
	return len(s.ids), nil
}

// CountBySource returns per-source counts ordered by source.
func (s *KnowledgeStore) CountBySource(_ context.Context) ([]domain.SourceCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make([]domain.SourceCount, 0, len(s.bySource))
	for source, records := range s.bySource {
		counts = append(counts, domain.SourceCount{Source: source, Count: len(records)})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Source < counts[j].Source
	})
	return counts, nil
}

// ListBySource returns a copy of the records for a source in insertion order.
func (s *KnowledgeStore) ListBySource(_ context.Context, source string) ([]domain.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.bySource[source]
	out := make([]domain.KnowledgeRecord, len(records))
	copy(out, records)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *KnowledgeStore) Close() error {
	return nil
}
