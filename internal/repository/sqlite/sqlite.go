// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite is an embedded database — it lives inside the binary as a single
// file, which fits the single-process design: the database is the one shared
// mutual-exclusion boundary for all state mutations, and row-level atomicity
// of a single UPDATE statement is what keeps concurrent votes from losing
// increments.
//
// We use modernc.org/sqlite (a pure Go translation of SQLite) rather than
// mattn/go-sqlite3, so no C toolchain is needed and cross-compilation works
// everywhere Go does.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
// The server owns it: New creates it, Close releases it on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath, applies pragmas, runs the
// migrations, and seeds the poll with the given option set.
//
// dbPath may be ":memory:" for tests. Seeding is idempotent: existing option
// rows keep their counts across restarts.
func New(dbPath string, pollOptions []string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection serves the whole process. Pragmas below are
	// per-connection, and a single writer sidesteps SQLITE_BUSY between
	// pooled connections; SQLite serializes at the row level either way.
	conn.SetMaxOpenConns(1)

	// sql.Open is lazy; Ping forces a real connection so a bad path or
	// permissions problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — important
	// because every vote broadcast re-reads the tally the moment it changes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; messages.author_id
	// references users.id, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	if err := db.seedVoteOptions(pollOptions); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: seeding vote options: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always deferred next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL DEFAULT '',
			mobile        TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS votes (
			option TEXT PRIMARY KEY,
			count  INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating votes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id  TEXT NOT NULL REFERENCES users(id),
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_messages_author_id ON messages(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating messages table: %w", err)
	}

	return nil
}

// seedVoteOptions inserts the fixed option set with count 0. INSERT OR IGNORE
// leaves existing rows — and their accumulated counts — untouched.
func (db *DB) seedVoteOptions(options []string) error {
	for _, opt := range options {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO votes (option, count) VALUES (?, 0)`, opt,
		); err != nil {
			return fmt.Errorf("seeding option %q: %w", opt, err)
		}
	}
	return nil
}
