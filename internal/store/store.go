// Package store keeps a durable log of confirmed access transitions in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/mask-gate/internal/logic"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id         TEXT PRIMARY KEY,
	ts_unix_ns INTEGER NOT NULL,
	event      TEXT NOT NULL,
	state      TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS transitions_ts ON transitions (ts_unix_ns);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Store is a transition log backed by a single SQLite file.
// It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// One writer; the frame loop and the HTTP handlers share it.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends a confirmed transition.
func (s *Store) Record(ctx context.Context, e logic.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (id, ts_unix_ns, event, state, label, confidence) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), string(e.Type), string(e.State), e.Label, e.Confidence)
	if err != nil {
		return fmt.Errorf("store: record %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit transitions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]logic.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts_unix_ns, event, state, label, confidence FROM transitions ORDER BY ts_unix_ns DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent: %w", err)
	}
	defer rows.Close()

	var events []logic.Event
	for rows.Next() {
		var (
			e     logic.Event
			ts    int64
			typ   string
			state string
		)
		if err := rows.Scan(&e.ID, &ts, &typ, &state, &e.Label, &e.Confidence); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Type = logic.EventType(typ)
		e.State = logic.State(state)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate: %w", err)
	}
	return events, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
