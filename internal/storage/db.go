// Package storage is the SQLite-backed collaborator store: conversations with
// their unread counters, call records and user profiles.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrConversationExists is returned when creating a room that is already stored
var ErrConversationExists = errors.New("conversation already exists")

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	room_id        TEXT PRIMARY KEY,
	last_message   TEXT NOT NULL DEFAULT '',
	last_sender_id TEXT NOT NULL DEFAULT '',
	updated_at     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS conversation_members (
	room_id  TEXT NOT NULL REFERENCES conversations(room_id) ON DELETE CASCADE,
	user_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	unread   INTEGER NOT NULL DEFAULT 0 CHECK (unread >= 0),
	PRIMARY KEY (room_id, user_id)
);
CREATE TABLE IF NOT EXISTS call_records (
	call_id       TEXT PRIMARY KEY,
	caller_id     TEXT NOT NULL,
	callee_id     TEXT NOT NULL,
	media_room_id TEXT NOT NULL,
	state         TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	answered_at   INTEGER NOT NULL DEFAULT 0,
	ended_at      INTEGER NOT NULL DEFAULT 0,
	ended_by      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_call_records_callee ON call_records(callee_id, created_at);
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	avatar_url   TEXT NOT NULL DEFAULT '',
	university   TEXT NOT NULL DEFAULT ''
);
`

// DB wraps the SQLite database
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Close closes the underlying database
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks that the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
