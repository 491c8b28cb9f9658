package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// schema holds the notes table (owned by the note service, mirrored here so
// the CLI can seed it) and the three knowledge-graph tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id)`,
	`CREATE TABLE IF NOT EXISTS note_embeddings (
		note_id TEXT PRIMARY KEY REFERENCES notes(id) ON DELETE CASCADE,
		embedding BLOB NOT NULL,
		dimensions INTEGER NOT NULL,
		model TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS note_relationships (
		id TEXT PRIMARY KEY,
		source_note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		target_note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		relationship_type TEXT NOT NULL,
		strength REAL NOT NULL,
		auto_generated INTEGER NOT NULL DEFAULT 1,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(source_note_id, target_note_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_target ON note_relationships(target_note_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_strength ON note_relationships(strength)`,
	`CREATE TABLE IF NOT EXISTS graph_metadata (
		owner_id TEXT PRIMARY KEY,
		total_nodes INTEGER NOT NULL,
		total_edges INTEGER NOT NULL,
		avg_connections REAL NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled,
// creating the schema if needed
func OpenDB(path string) (*DB, error) {
	// Pragmas go in the DSN so every pooled connection gets them
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	d := &DB{conn: conn, Path: path}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := d.conn.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// inClause returns "?,?,?" for n parameters and the ids as []any
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
