package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbingest/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.KnowledgeStore = (*Store)(nil)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "knowledge.db"

// Store is a SQLite-backed knowledge store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kbingest/data/knowledge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbingest", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_knowledge_chunks.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// DeleteBySource removes every record for a source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM knowledge_chunks WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("deleting records for %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted records: %w", err)
	}
	return int(n), nil
}

// Insert stores a single record.
func (s *Store) Insert(ctx context.Context, record domain.KnowledgeRecord) error {
	return s.InsertBatch(ctx, []domain.KnowledgeRecord{record})
}

// InsertBatch stores records in one transaction.
func (s *Store) InsertBatch(ctx context.Context, records []domain.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_chunks (id, source, heading, content, embedding, token_estimate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrPersistenceFailure, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID == "" || r.Source == "" {
			return fmt.Errorf("%w: record needs an id and a source", domain.ErrPersistenceFailure)
		}
		embeddingJSON, err := json.Marshal(r.Embedding)
		if err != nil {
			return fmt.Errorf("%w: marshalling embedding: %w", domain.ErrPersistenceFailure, err)
		}

		if _, err := stmt.ExecContext(ctx, r.ID, r.Source, nullString(r.Heading), r.Content,
			string(embeddingJSON), r.TokenEstimate, r.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("%w: saving record %s: %w", domain.ErrPersistenceFailure, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// Count returns the number of records for a source, or all records when source is empty.
func (s *Store) Count(ctx context.Context, source string) (int, error) {
	var (
		n   int
		err error
	)
	if source == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_chunks").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM knowledge_chunks WHERE source = ?", source).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// CountBySource returns record counts grouped by source.
func (s *Store) CountBySource(ctx context.Context) ([]domain.SourceCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM knowledge_chunks
		GROUP BY source ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("querying counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.SourceCount //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}

// ListBySource returns the records for a source in insertion order.
func (s *Store) ListBySource(ctx context.Context, source string) ([]domain.KnowledgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, heading, content, embedding, token_estimate, created_at
		FROM knowledge_chunks WHERE source = ?
		ORDER BY seq
	`, source)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.KnowledgeRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// ==================== Helper Functions ====================

func scanRecord(rows *sql.Rows) (*domain.KnowledgeRecord, error) {
	var (
		r             domain.KnowledgeRecord
		heading       sql.NullString
		embeddingJSON string
		createdAt     time.Time
	)
	if err := rows.Scan(&r.ID, &r.Source, &heading, &r.Content, &embeddingJSON,
		&r.TokenEstimate, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	if heading.Valid {
		h := heading.String
		r.Heading = &h
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &r.Embedding); err != nil {
		return nil, fmt.Errorf("unmarshalling embedding for %s: %w", r.ID, err)
	}
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

