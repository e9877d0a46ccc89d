// Package index persists a repair snapshot of the analyzed graph to
// SQLite: the note-title inventory plus the current dangling links. The
// link-repair tooling queries it for suggestion candidates without
// re-walking the vault. This is not the analysis cache; cached graph
// stats live in memory only.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	normalized TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dangling (
	target     TEXT NOT NULL,
	note_path  TEXT NOT NULL,
	note_title TEXT NOT NULL DEFAULT '',
	count      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(target, note_path)
);

CREATE INDEX IF NOT EXISTS idx_notes_normalized ON notes(normalized);
CREATE INDEX IF NOT EXISTS idx_dangling_target ON dangling(target);
`

// DB wraps a sql.DB with snapshot-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
