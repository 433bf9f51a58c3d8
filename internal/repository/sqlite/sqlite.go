// Package sqlite implements the repository interfaces on an embedded SQLite
// database. modernc.org/sqlite is a pure-Go driver, so the binary stays
// CGo-free and cross-compiles cleanly.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests) and runs
// migrations. WAL mode keeps reads concurrent with writes; foreign keys are
// enabled so app_files rows follow their app on delete.
//
// SQLite applies pragmas per connection and database/sql opens pool
// connections lazily, so the pragmas ride the DSN instead of a one-off Exec.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each pooled connection to ":memory:" would get its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS apps (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS app_files (
			app_id   TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name     TEXT NOT NULL,
			source   TEXT NOT NULL,
			PRIMARY KEY (app_id, position)
		);

		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			content
		);
	`)
	return err
}
