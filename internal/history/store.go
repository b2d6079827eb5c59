// Package history keeps an append-only log of sync runs in sqlite.
// It is an operator record only: scheduler state is never reconstructed
// from it, so every restart starts with a clean slate.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded sync pass.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Results   map[string]bool
	Status    string
}

// Store persists sync runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// sqlite works best with a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			results TEXT NOT NULL,
			status TEXT NOT NULL
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating sync_runs table: %w", err)
	}
	return nil
}

// Record appends one run to the log.
func (s *Store) Record(ctx context.Context, run Run) error {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}

	query := `
		INSERT INTO sync_runs (id, started_at, duration_seconds, results, status)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Duration.Seconds(),
		string(resultsJSON),
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}

	return nil
}

// Recent returns the latest n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	query := `
		SELECT id, started_at, duration_seconds, results, status
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationSeconds float64
		var resultsJSON string

		if err := rows.Scan(&run.ID, &startedAt, &durationSeconds, &resultsJSON, &run.Status); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		run.Duration = time.Duration(durationSeconds * float64(time.Second))

		if err := json.Unmarshal([]byte(resultsJSON), &run.Results); err != nil {
			return nil, fmt.Errorf("unmarshaling results: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return runs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
