// Package index is the SQLite record store behind the content API. Records
// mirror the Markdown files of the vault; removed files are soft-deleted.
package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	slug        TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	frontmatter TEXT NOT NULL DEFAULT 'null',
	hash        TEXT NOT NULL DEFAULT '',
	deleted     TEXT NOT NULL DEFAULT '',
	created     TEXT NOT NULL,
	updated     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_order ON records(created, id);
CREATE INDEX IF NOT EXISTS idx_records_deleted ON records(deleted);
`

// DB wraps a sql.DB with record-store operations.
type DB struct {
	conn  *sql.DB
	now   func() time.Time
	newID func() string
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces time.Now for created/updated/deleted stamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// WithIDGenerator replaces the record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(db *DB) {
		db.newID = fn
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
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
	db := &DB{conn: conn, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database connection.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
