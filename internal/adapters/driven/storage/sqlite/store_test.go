package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "kbingest-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func strPtr(s string) *string { return &s }

func testRecords(source string, n int) []domain.KnowledgeRecord {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]domain.KnowledgeRecord, n)
	for i := range records {
		records[i] = domain.KnowledgeRecord{
			ID:            fmt.Sprintf("%s-%03d", source, i),
			Source:        source,
			Content:       fmt.Sprintf("%s chunk %d", source, i),
			Embedding:     []float32{float32(i), 0.5, -0.25},
			TokenEstimate: 10 + i,
			CreatedAt:     created,
		}
	}
	return records
}

func TestNewStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, DatabaseFile, filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	require.NoError(t, err)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.InsertBatch(ctx, testRecords("NASM", 3)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx, "NASM")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestStore_InsertBatchAndList(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	records := testRecords("ACE", 4)
	records[0].Heading = strPtr("Energy Systems")

	require.NoError(t, store.InsertBatch(ctx, records))

	got, err := store.ListBySource(ctx, "ACE")
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i := range records {
		assert.Equal(t, records[i].ID, got[i].ID)
		assert.Equal(t, records[i].Content, got[i].Content)
		assert.Equal(t, records[i].Embedding, got[i].Embedding)
		assert.Equal(t, records[i].TokenEstimate, got[i].TokenEstimate)
		assert.True(t, records[i].CreatedAt.Equal(got[i].CreatedAt))
	}
	require.NotNil(t, got[0].Heading)
	assert.Equal(t, "Energy Systems", *got[0].Heading)
	assert.Nil(t, got[1].Heading)
}

func TestStore_InsertBatch_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, store.InsertBatch(context.Background(), nil))
}

func TestStore_InsertBatch_AllOrNothing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	records := testRecords("NCSF", 3)
	records[2].ID = records[0].ID

	err := store.InsertBatch(ctx, records)
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)

	n, err := store.Count(ctx, "NCSF")
	require.NoError(t, err)
	assert.Zero(t, n, "a failed batch must not leave partial records")
}

func TestStore_InsertBatch_RejectsMissingSource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	records := testRecords("NFPT", 2)
	records[1].Source = ""

	err := store.InsertBatch(context.Background(), records)
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
}

func TestStore_Insert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecords("NASM", 1)[0]))

	n, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_DeleteBySource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertBatch(ctx, testRecords("NASM", 5)))
	require.NoError(t, store.InsertBatch(ctx, testRecords("ACE", 2)))

	deleted, err := store.DeleteBySource(ctx, "NASM")
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	deleted, err = store.DeleteBySource(ctx, "NASM")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	n, err := store.Count(ctx, "ACE")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "other sources are untouched")
}

func TestStore_CountBySource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	counts, err := store.CountBySource(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, store.InsertBatch(ctx, testRecords("NFPT", 2)))
	require.NoError(t, store.InsertBatch(ctx, testRecords("ACE", 3)))
	require.NoError(t, store.InsertBatch(ctx, testRecords("NASM", 1)))

	counts, err = store.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceCount{
		{Source: "ACE", Count: 3},
		{Source: "NASM", Count: 1},
		{Source: "NFPT", Count: 2},
	}, counts)

	total, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func TestStore_ReplaceSource(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertBatch(ctx, testRecords("NASM", 50)))

	deleted, err := store.DeleteBySource(ctx, "NASM")
	require.NoError(t, err)
	assert.Equal(t, 50, deleted)

	replacement := testRecords("NASM", 42)
	for i := range replacement {
		replacement[i].ID = fmt.Sprintf("new-%03d", i)
	}
	require.NoError(t, store.InsertBatch(ctx, replacement))

	n, err := store.Count(ctx, "NASM")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestStore_CancelledContext(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.InsertBatch(ctx, testRecords("ACE", 2))
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
}
