// Package resultstore persists run summaries to Postgres. It is entirely
// optional: a scheduler run with no --result-dsn configured simply never
// constructs a Store. Grounded on the teacher's pkg/database manager,
// whose combined Postgres+Redis connection-management pattern this
// package keeps for the sqlx/lib-pq half (the Redis half became
// pkg/duphash).
package resultstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// RunSummary is one completed (or cancelled) scheduler run, as persisted
// in the scheduler_runs table.
type RunSummary struct {
	ID          string    `db:"id"`
	Scheduler   string    `db:"scheduler"` // "gvns" or "pbig"
	Problem     string    `db:"problem"`
	BestObj     float64   `db:"best_objective"`
	Iterations  int64     `db:"iterations"`
	Duration    float64   `db:"duration_seconds"`
	Terminated  string    `db:"terminated_reason"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
}

// Store wraps a pooled Postgres connection.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scheduler_runs (
	id                 TEXT PRIMARY KEY,
	scheduler          TEXT NOT NULL,
	problem            TEXT NOT NULL,
	best_objective     DOUBLE PRECISION NOT NULL,
	iterations         BIGINT NOT NULL,
	duration_seconds   DOUBLE PRECISION NOT NULL,
	terminated_reason  TEXT NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL
);`

// Open connects to dsn, creating the scheduler_runs table if absent.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("resultstore: connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("resultstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun upserts a run summary.
func (s *Store) SaveRun(ctx context.Context, run RunSummary) error {
	const q = `
INSERT INTO scheduler_runs
	(id, scheduler, problem, best_objective, iterations, duration_seconds, terminated_reason, started_at, finished_at)
VALUES
	(:id, :scheduler, :problem, :best_objective, :iterations, :duration_seconds, :terminated_reason, :started_at, :finished_at)
ON CONFLICT (id) DO UPDATE SET
	best_objective = EXCLUDED.best_objective,
	iterations = EXCLUDED.iterations,
	duration_seconds = EXCLUDED.duration_seconds,
	terminated_reason = EXCLUDED.terminated_reason,
	finished_at = EXCLUDED.finished_at;`
	_, err := s.db.NamedExecContext(ctx, q, run)
	if err != nil {
		return fmt.Errorf("resultstore: save run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns the most recently finished runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := s.db.SelectContext(ctx, &runs,
		`SELECT * FROM scheduler_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("resultstore: recent runs: %w", err)
	}
	return runs, nil
}
