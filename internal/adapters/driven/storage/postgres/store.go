// Package postgres provides a driven.KnowledgeStore on Postgres with pgvector.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.KnowledgeStore = (*Store)(nil)

// connectTimeout bounds the initial ping.
const connectTimeout = 30 * time.Second

// Store keeps knowledge records in a pgvector column.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and bootstraps the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres storage needs a DSN (set KBINGEST_DATABASE_URL)",
			domain.ErrConfiguration)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Ingestion is sequential; a small pool is enough.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := ensureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DeleteBySource removes every record for a source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_chunks WHERE source = $1`, source)
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
		INSERT INTO knowledge_chunks
			(id, source, heading, content, embedding, token_estimate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrPersistenceFailure, err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if r.ID == "" || r.Source == "" {
			return fmt.Errorf("%w: record needs an id and a source", domain.ErrPersistenceFailure)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Source, r.Heading, r.Content, pgvector.NewVector(r.Embedding), r.TokenEstimate, r.CreatedAt,
		); err != nil {
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
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge_chunks WHERE $1 = '' OR source = $1`, source).Scan(&n)
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

	var out []domain.SourceCount
	for rows.Next() {
		var c domain.SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListBySource returns the records for a source in insertion order.
func (s *Store) ListBySource(ctx context.Context, source string) ([]domain.KnowledgeRecord, error) {
	const q = `
		SELECT id, source, heading, content, embedding, token_estimate, created_at
		FROM knowledge_chunks
		WHERE source = $1
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, q, source)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []domain.KnowledgeRecord
	for rows.Next() {
		var (
			r       domain.KnowledgeRecord
			heading sql.NullString
			emb     pgvector.Vector
		)
		if err := rows.Scan(&r.ID, &r.Source, &heading, &r.Content, &emb, &r.TokenEstimate, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if heading.Valid {
			h := heading.String
			r.Heading = &h
		}
		r.Embedding = emb.Slice()
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
