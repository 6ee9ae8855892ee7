// Package history keeps a log of recent conversions in SQLite so operators
// can see what was converted, how long it took and why it failed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Schema for the conversions table, applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	primary_doc TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	pages INTEGER NOT NULL DEFAULT 0,
	pdf_bytes INTEGER NOT NULL DEFAULT 0,
	unresolved INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
`

// Conversion outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("history store closed")

// Record is one conversion attempt.
type Record struct {
	ID         string        `json:"id"`
	RequestID  string        `json:"request_id,omitempty"`
	Title      string        `json:"title"`
	Primary    string        `json:"primary_document,omitempty"`
	Status     string        `json:"status"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Pages      int           `json:"pages"`
	Bytes      int64         `json:"pdf_bytes"`
	Unresolved int           `json:"unresolved_images"`
	Duration   time.Duration `json:"duration_ns"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Store persists conversion records.
type Store struct {
	db    *sql.DB
	limit int
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory store. limit caps retained rows;
// zero or less keeps everything.
func Open(path string, limit int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One connection: an in-memory database is per connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configuring history: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialising history schema: %w", err)
	}
	return &Store{db: db, limit: limit}, nil
}

// Add inserts r, filling ID and CreatedAt when empty, then prunes old rows.
func (s *Store) Add(ctx context.Context, r Record) (Record, error) {
	if s == nil || s.db == nil {
		return r, ErrClosed
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions
			(id, request_id, title, primary_doc, status, error_kind, pages, pdf_bytes, unresolved, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RequestID, r.Title, r.Primary, r.Status, r.ErrorKind,
		r.Pages, r.Bytes, r.Unresolved, r.Duration.Milliseconds(), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return r, fmt.Errorf("recording conversion: %w", err)
	}

	if s.limit > 0 {
		if _, err := s.Prune(ctx, s.limit); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, title, primary_doc, status, error_kind, pages, pdf_bytes, unresolved, duration_ms, created_at
		FROM conversions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var durationMS, createdMS int64
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Title, &r.Primary, &r.Status, &r.ErrorKind,
			&r.Pages, &r.Bytes, &r.Unresolved, &durationMS, &createdMS); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep records and returns how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM conversions WHERE rowid NOT IN (
			SELECT rowid FROM conversions ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
