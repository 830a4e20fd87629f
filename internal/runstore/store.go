package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dubber/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape. There is no
// migration path; stale ledgers must be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the ledger was written by a different version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Stage statuses recorded per transition.
const (
	StageStatusStarted  = "started"
	StageStatusDone     = "done"
	StageStatusSkipped  = "skipped"
	StageStatusDegraded = "degraded"
	StageStatusFailed   = "failed"
)

// Run is one dubbing invocation recorded in the ledger.
type Run struct {
	ID           string
	InputPath    string
	OutputPath   string
	TargetLang   string
	Status       string
	ErrorMessage string
	WorkDir      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StageTransition is one stage status change for a run.
type StageTransition struct {
	RunID     string
	Stage     string
	Status    string
	Detail    string
	CreatedAt time.Time
}

// SegmentOutcome records how one segment was voiced.
type SegmentOutcome struct {
	Index   int
	Speaker string
	Status  string
	Clip    string
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the run ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const timeLayout = time.RFC3339Nano

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	now := time.Now().UTC().Format(timeLayout)
	return s.execWithRetry(ctx,
		`INSERT INTO runs (id, input_path, output_path, target_lang, status, work_dir, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.OutputPath, run.TargetLang, RunStatusRunning, run.WorkDir, now, now,
	)
}

// FinishRun marks a run completed or failed.
func (s *Store) FinishRun(ctx context.Context, runID, status, errorMessage string) error {
	now := time.Now().UTC().Format(timeLayout)
	return s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errorMessage, now, runID,
	)
}

// SetOutputPath records where the dubbed video landed.
func (s *Store) SetOutputPath(ctx context.Context, runID, outputPath string) error {
	now := time.Now().UTC().Format(timeLayout)
	return s.execWithRetry(ctx,
		`UPDATE runs SET output_path = ?, updated_at = ? WHERE id = ?`,
		outputPath, now, runID,
	)
}

// RecordStage appends one stage transition for a run.
func (s *Store) RecordStage(ctx context.Context, runID, stage, status, detail string) error {
	now := time.Now().UTC().Format(timeLayout)
	return s.execWithRetry(ctx,
		`INSERT INTO stage_transitions (run_id, stage, status, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, stage, status, detail, now,
	)
}

// RecordSegmentOutcomes stores the per-segment results for a run, replacing
// any earlier attempt.
func (s *Store) RecordSegmentOutcomes(ctx context.Context, runID string, outcomes []SegmentOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcomes tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segment_outcomes WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear segment outcomes: %w", err)
	}
	for _, outcome := range outcomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segment_outcomes (run_id, segment_index, speaker, status, clip_path) VALUES (?, ?, ?, ?, ?)`,
			runID, outcome.Index, outcome.Speaker, outcome.Status, outcome.Clip,
		); err != nil {
			return fmt.Errorf("insert segment outcome %d: %w", outcome.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit segment outcomes: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, output_path, target_lang, status, error_message, work_dir, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "runstore", "get run", fmt.Sprintf("run %s", runID), nil)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_path, output_path, target_lang, status, error_message, work_dir, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StageHistory returns a run's transitions in insertion order.
func (s *Store) StageHistory(ctx context.Context, runID string) ([]StageTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, status, detail, created_at FROM stage_transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("stage history: %w", err)
	}
	defer rows.Close()

	var transitions []StageTransition
	for rows.Next() {
		var t StageTransition
		var created string
		if err := rows.Scan(&t.RunID, &t.Stage, &t.Status, &t.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan stage transition: %w", err)
		}
		t.CreatedAt, _ = time.Parse(timeLayout, created)
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// SegmentOutcomes returns the per-segment results for a run ordered by index.
func (s *Store) SegmentOutcomes(ctx context.Context, runID string) ([]SegmentOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_index, speaker, status, clip_path FROM segment_outcomes WHERE run_id = ? ORDER BY segment_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("segment outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []SegmentOutcome
	for rows.Next() {
		var o SegmentOutcome
		if err := rows.Scan(&o.Index, &o.Speaker, &o.Status, &o.Clip); err != nil {
			return nil, fmt.Errorf("scan segment outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var created, updated string
	err := row.Scan(&run.ID, &run.InputPath, &run.OutputPath, &run.TargetLang,
		&run.Status, &run.ErrorMessage, &run.WorkDir, &created, &updated)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt, _ = time.Parse(timeLayout, created)
	run.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return run, nil
}
