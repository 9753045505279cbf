// Package history records suite runs in a local SQLite database so results
// can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// Run is one recorded suite run.
type Run struct {
	ID          string
	StartedAt   time.Time
	RunDir      string
	Total       int
	Passed      int
	SuitePassed bool
	Duration    time.Duration
	Tests       []TestResult
}

// PassRate returns the share of passed tests in [0, 1].
func (r Run) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// TestResult is the recorded outcome of one test in a run.
type TestResult struct {
	Name     string
	Status   string
	Duration time.Duration
}

// Flake is a test that both passed and failed within a window of runs.
type Flake struct {
	Test   string
	Passed int
	Runs   int
}

// Store is a run history database.
type Store struct {
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its test results in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, run_dir, total, passed, suite_passed, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.RunDir,
		run.Total,
		run.Passed,
		run.SuitePassed,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO test_results (run_id, test, status, duration_ms) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare test insert: %w", err)
	}
	defer stmt.Close()
	for _, t := range run.Tests {
		if _, err := stmt.ExecContext(ctx, run.ID, t.Name, t.Status, t.Duration.Milliseconds()); err != nil {
			return fmt.Errorf("insert result for %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, most recent first, without test results.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, run_dir, total, passed, suite_passed, duration_ms
		FROM runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			durMS     int64
		)
		if err := rows.Scan(&r.ID, &startedAt, &r.RunDir, &r.Total, &r.Passed, &r.SuitePassed, &durMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", startedAt, err)
		}
		r.Duration = time.Duration(durMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastStatus returns the most recently recorded status of a test.
// ok is false when the test has never been recorded.
func (s *Store) LastStatus(ctx context.Context, test string) (status string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT tr.status FROM test_results tr JOIN runs r ON r.id = tr.run_id
		WHERE tr.test = ? ORDER BY r.seq DESC LIMIT 1`, test).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query last status: %w", err)
	}
	return status, true, nil
}

// Flaky returns tests that both passed and did not pass within the last
// window runs, ordered by name.
func (s *Store) Flaky(ctx context.Context, window int) ([]Flake, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test,
		       SUM(CASE WHEN status = 'PASSED' THEN 1 ELSE 0 END) AS passed,
		       COUNT(*) AS runs
		FROM test_results
		WHERE run_id IN (SELECT id FROM runs ORDER BY seq DESC LIMIT ?)
		GROUP BY test
		HAVING passed > 0 AND passed < runs
		ORDER BY test`, window)
	if err != nil {
		return nil, fmt.Errorf("query flaky tests: %w", err)
	}
	defer rows.Close()

	var out []Flake
	for rows.Next() {
		var f Flake
		if err := rows.Scan(&f.Test, &f.Passed, &f.Runs); err != nil {
			return nil, fmt.Errorf("scan flaky test: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
