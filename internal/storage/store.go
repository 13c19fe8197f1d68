// Package storage keeps the durable update-report log. The log is a
// metrics sink: dispatch emits reports, the store records them, and the
// readiness endpoint reads them back. Routing state never touches disk.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const schema = `
CREATE TABLE IF NOT EXISTS update_reports (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	bot            TEXT NOT NULL,
	update_id      INTEGER NOT NULL,
	update_type    TEXT NOT NULL DEFAULT '',
	received_at    INTEGER NOT NULL,
	handler_name   TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT '',
	error_message  TEXT NOT NULL DEFAULT '',
	processing_us  INTEGER NOT NULL,
	user_id_hash   TEXT NOT NULL DEFAULT '',
	language_code  TEXT NOT NULL DEFAULT '',
	content_type   TEXT NOT NULL DEFAULT '',
	is_forwarded   INTEGER NOT NULL DEFAULT 0,
	is_reply       INTEGER NOT NULL DEFAULT 0,
	filter_timings TEXT NOT NULL DEFAULT '',
	handler_data   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_update_reports_bot ON update_reports(bot);
CREATE INDEX IF NOT EXISTS idx_update_reports_received_at ON update_reports(received_at);
`

// Store wraps the SQLite report log.
type Store struct {
	conn *sql.DB
	path string
}

// New opens (or creates) the report log at dbPath and initializes the
// schema. Use ":memory:" for an ephemeral store in tests.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	// WAL keeps concurrent dispatch writes from blocking readiness reads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the store is reachable. The readiness endpoint calls it.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// NewTestStore creates an in-memory store for testing.
func NewTestStore() (*Store, error) {
	return New(":memory:")
}
