// Package store implements the trigger, target, and match-log stores on
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// ErrNotFound is returned when a row lookup by id finds nothing.
var ErrNotFound = errors.New("not found")

// Store wraps a SQLite database holding triggers, targets, and the
// append-only match log. Match record ids are assigned by SQLite's
// AUTOINCREMENT, so id order is creation order.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS targets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id INTEGER NOT NULL UNIQUE,
	handle TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS triggers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	raw_text TEXT NOT NULL DEFAULT '',
	pattern TEXT NOT NULL,
	flags INTEGER NOT NULL DEFAULT 0,
	scope_target_id INTEGER REFERENCES targets(id) ON DELETE CASCADE,
	enabled INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS match_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id INTEGER REFERENCES targets(id) ON DELETE SET NULL,
	message_id INTEGER NOT NULL DEFAULT 0,
	author_id INTEGER NOT NULL DEFAULT 0,
	author_name TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	matched_trigger_id INTEGER REFERENCES triggers(id) ON DELETE SET NULL,
	matched_text TEXT NOT NULL DEFAULT '',
	raw_payload TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triggers_enabled ON triggers(enabled);
`

// Open opens (creating if necessary) the database at dbPath and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time interface compliance checks.
var _ types.TriggerStore = (*Store)(nil)
var _ types.TargetStore = (*Store)(nil)
var _ types.MatchStore = (*Store)(nil)
