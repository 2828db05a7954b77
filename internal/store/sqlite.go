// ABOUTME: SQLite persistence for finished invocations using modernc.org/sqlite.
// ABOUTME: Stores invocation summaries, trace rows, and usage rows with automatic schema creation.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested invocation does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore persists invocations, their traces, and their usage.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema
// is created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			entry TEXT NOT NULL,
			input TEXT,
			output TEXT,
			error TEXT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS call_trace (
			id TEXT PRIMARY KEY,
			invocation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			depth INTEGER NOT NULL,
			input TEXT,
			output TEXT,
			error TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (invocation_id) REFERENCES invocations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_call_trace_invocation
			ON call_trace(invocation_id, seq);

		CREATE TABLE IF NOT EXISTS model_usage (
			invocation_id TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cache_read_tokens INTEGER NOT NULL,
			cache_write_tokens INTEGER NOT NULL,
			thinking_tokens INTEGER NOT NULL,
			calls INTEGER NOT NULL,
			PRIMARY KEY (invocation_id, model),
			FOREIGN KEY (invocation_id) REFERENCES invocations(id)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullString converts an empty string to a NULL-able value.
func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
