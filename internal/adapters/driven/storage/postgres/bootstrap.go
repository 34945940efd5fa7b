package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"
)

//go:embed scripts/bootstrap.sql
var bootstrapFS embed.FS

// schemaVersion is the version recorded by scripts/bootstrap.sql.
const schemaVersion = 1

// ensureBootstrapped creates the pgvector extension and the schema unless
// the current version is already recorded.
func ensureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = 'kbingest_meta'
		)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		return runBootstrap(ctx, db)
	}

	var hasVersion bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM kbingest_meta WHERE version = $1)`, schemaVersion).Scan(&hasVersion)
	if err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if !hasVersion {
		return runBootstrap(ctx, db)
	}
	return nil
}

func runBootstrap(ctx context.Context, db *sql.DB) error {
	script, err := bootstrapFS.ReadFile("scripts/bootstrap.sql")
	if err != nil {
		return fmt.Errorf("read bootstrap.sql: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("run bootstrap.sql: %w", err)
	}
	return nil
}
