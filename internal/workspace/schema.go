// Package workspace mirrors the host's open views in SQLite and acts as the
// reconciliation host: applying a plan updates the mirror and streams the
// matching commands to the plugin.
package workspace

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS views (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL DEFAULT '',
	resource_path    TEXT NOT NULL DEFAULT '',
	group_id         TEXT NOT NULL DEFAULT '',
	active_time      INTEGER NOT NULL DEFAULT 0,
	pinned           INTEGER NOT NULL DEFAULT 0,
	has_back_history INTEGER NOT NULL DEFAULT 0,
	seq              INTEGER NOT NULL DEFAULT 0,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_views_resource ON views(resource_path, group_id);
CREATE INDEX IF NOT EXISTS idx_views_kind ON views(kind);
`

// Store wraps a sql.DB holding the view mirror.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("workspace: open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("workspace: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("workspace: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
