package client

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLocalStore keeps the cache in a single-file SQLite database.
type SQLiteLocalStore struct {
	db *sql.DB
}

func OpenSQLiteLocalStore(ctx context.Context, path string) (*SQLiteLocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// One writer is all a kiosk needs.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS attendance_cache (
  employee_id      TEXT PRIMARY KEY,
  currently_in     INTEGER NOT NULL,
  last_updated_ms  INTEGER NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure attendance_cache: %w", err)
	}

	return &SQLiteLocalStore{db: db}, nil
}

func (s *SQLiteLocalStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLocalStore) Load(ctx context.Context) (map[string]EntryState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT employee_id, currently_in, last_updated_ms FROM attendance_cache;`)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]EntryState)
	for rows.Next() {
		var (
			id      string
			in      int
			updated int64
		)
		if err := rows.Scan(&id, &in, &updated); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		entries[id] = EntryState{CurrentlyIn: in == 1, LastUpdated: fromMillis(updated)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache rows: %w", err)
	}
	return entries, nil
}

// Save replaces the whole cache in one transaction.
func (s *SQLiteLocalStore) Save(ctx context.Context, entries map[string]EntryState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_cache;`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear cache: %w", err)
	}
	for id, state := range entries {
		if err := upsertEntry(ctx, tx, id, state); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteLocalStore) Put(ctx context.Context, employeeID string, state EntryState) error {
	return upsertEntry(ctx, s.db, employeeID, state)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertEntry(ctx context.Context, db execer, employeeID string, state EntryState) error {
	in := 0
	if state.CurrentlyIn {
		in = 1
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO attendance_cache (employee_id, currently_in, last_updated_ms)
VALUES (?, ?, ?)
ON CONFLICT(employee_id) DO UPDATE SET
  currently_in = excluded.currently_in,
  last_updated_ms = excluded.last_updated_ms;
`, employeeID, in, toMillis(state.LastUpdated)); err != nil {
		return fmt.Errorf("upsert cache entry %s: %w", employeeID, err)
	}
	return nil
}

// Zero time is stored as 0 so "never updated" survives a round trip.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
