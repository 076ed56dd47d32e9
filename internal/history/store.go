// Package history keeps a SQLite record of past runs so that threshold
// observations can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/giantswarm/load-testing/internal/summary"
)

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Run is one recorded run.
type Run struct {
	ID              string    `json:"run_id"`
	Suite           string    `json:"suite"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Iterations      int64     `json:"iterations"`
	Passed          bool      `json:"passed"`
	Failures        int       `json:"failures"`
}

// Point is one threshold observation from a past run.
type Point struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Observed  float64   `json:"observed"`
	Passed    bool      `json:"passed"`
	NoData    bool      `json:"no_data,omitempty"`
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore creates the tables if they don't exist and returns a Store
// backed by db.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id               TEXT    PRIMARY KEY,
			suite            TEXT    NOT NULL,
			started_at       INTEGER NOT NULL,
			duration_seconds REAL    NOT NULL,
			iterations       INTEGER NOT NULL,
			passed           INTEGER NOT NULL,
			failures         INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS threshold_results (
			run_id     TEXT    NOT NULL REFERENCES runs(id),
			key        TEXT    NOT NULL,
			expression TEXT    NOT NULL,
			observed   REAL    NOT NULL,
			samples    INTEGER NOT NULL,
			no_data    INTEGER NOT NULL,
			passed     INTEGER NOT NULL,
			PRIMARY KEY (run_id, key)
		)
	`); err != nil {
		return nil, fmt.Errorf("create threshold_results table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_suite_started
		ON runs (suite, started_at)
	`); err != nil {
		return nil, fmt.Errorf("create runs index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a run and all of its threshold verdicts.
func (s *Store) RecordRun(ctx context.Context, doc *summary.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, failures := doc.Counts()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, suite, started_at, duration_seconds, iterations, passed, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.RunID, doc.Suite, doc.StartedAt.UnixNano(), doc.DurationSeconds, doc.Iterations, doc.Passed, failures,
	); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for _, t := range doc.Thresholds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO threshold_results (run_id, key, expression, observed, samples, no_data, passed)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.RunID, t.Key, t.Expression, t.Observed, t.Samples, t.NoData, t.Passed,
		); err != nil {
			return fmt.Errorf("record threshold %q: %w", t.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. An empty suite lists every suite.
func (s *Store) ListRuns(ctx context.Context, suite string, limit int) ([]Run, error) {
	query := `SELECT id, suite, started_at, duration_seconds, iterations, passed, failures FROM runs`
	var args []any
	if suite != "" {
		query += ` WHERE suite = ?`
		args = append(args, suite)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started int64
		)
		if err := rows.Scan(&r.ID, &r.Suite, &started, &r.DurationSeconds, &r.Iterations, &r.Passed, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// KeyHistory returns the last limit observations of a threshold key for a
// suite, most recent first.
func (s *Store) KeyHistory(ctx context.Context, suite, key string, limit int) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, t.observed, t.passed, t.no_data
		 FROM threshold_results t JOIN runs r ON r.id = t.run_id
		 WHERE r.suite = ? AND t.key = ?
		 ORDER BY r.started_at DESC
		 LIMIT ?`,
		suite, key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query key history: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p       Point
			started int64
		)
		if err := rows.Scan(&p.RunID, &started, &p.Observed, &p.Passed, &p.NoData); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.StartedAt = time.Unix(0, started).UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("key history rows: %w", err)
	}
	return points, nil
}

// Stats computes the mean, population standard deviation and count of the
// observed values of a key across runs that produced data.
func (s *Store) Stats(ctx context.Context, suite, key string) (mean, stddev float64, count int, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.observed
		 FROM threshold_results t JOIN runs r ON r.id = t.run_id
		 WHERE r.suite = ? AND t.key = ? AND t.no_data = 0`,
		suite, key,
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, 0, 0, fmt.Errorf("stats scan: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, 0, fmt.Errorf("stats rows: %w", err)
	}
	if len(values) == 0 {
		return 0, 0, 0, nil
	}

	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	// SQLite lacks STDDEV_POP.
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values))), len(values), nil
}
