// Package sqlite provides the default SQLite implementation of driven.KnowledgeStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Records live in the knowledge_chunks table; embeddings are stored as JSON
// arrays so the file stays readable with the sqlite3 shell.
//
// # Data Location
//
// By default, the database is stored at ~/.kbingest/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
