// Package journal persists one row per completed optimization. It backs the
// status totals and retention pruning; clipboard content itself is never
// stored.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS optimizations (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	original_size INTEGER NOT NULL,
	new_size      INTEGER NOT NULL,
	width         INTEGER NOT NULL,
	height        INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_optimizations_created_at ON optimizations(created_at);
`

// Entry is one recorded optimization run.
type Entry struct {
	ID           string
	Source       string
	OriginalSize uint64
	NewSize      uint64
	Width        int
	Height       int
	Duration     time.Duration
	CreatedAt    time.Time
}

// Totals aggregates every recorded run.
type Totals struct {
	Runs          int64
	OriginalBytes uint64
	NewBytes      uint64
	LastRunAt     time.Time
}

// Store wraps the journal database.
type Store struct {
	db *sql.DB
}

// Open opens the journal database at path, creating parent directories and
// applying pragmas and schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if err := initDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory journal for testing. MaxOpenConns(1) keeps
// every query on the same in-memory database; Close is registered as a test
// cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("journal.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := initDB(db); err != nil {
		t.Fatalf("journal.OpenMemory: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() { s.Close() })
	return s
}

func initDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("journal: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("journal: apply schema: %w", err)
	}
	return nil
}

// Record inserts one completed run. A zero ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO optimizations (id, source, original_size, new_size, width, height, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, int64(e.OriginalSize), int64(e.NewSize), e.Width, e.Height,
		e.Duration.Milliseconds(), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Totals aggregates all runs; zero values when the journal is empty.
func (s *Store) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	var orig, newer, last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(original_size), SUM(new_size), MAX(created_at)
		FROM optimizations`).Scan(&t.Runs, &orig, &newer, &last)
	if err != nil {
		return nil, fmt.Errorf("journal: totals: %w", err)
	}
	t.OriginalBytes = uint64(orig.Int64)
	t.NewBytes = uint64(newer.Int64)
	if last.Valid {
		t.LastRunAt = time.Unix(last.Int64, 0)
	}
	return &t, nil
}

// Recent returns the n newest runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, original_size, new_size, width, height, duration_ms, created_at
		FROM optimizations ORDER BY created_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var orig, newer, durMS, created int64
		if err := rows.Scan(&e.ID, &e.Source, &orig, &newer, &e.Width, &e.Height, &durMS, &created); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.OriginalSize = uint64(orig)
		e.NewSize = uint64(newer)
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes runs older than keep and reports how many went away.
func (s *Store) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM optimizations WHERE created_at < ?`,
		time.Now().Add(-keep).Unix())
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error { return s.db.Close() }
