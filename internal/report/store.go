// Package report keeps an audit trail of filter runs in a SQLite database.
//
// Each run stores its parameters, the size of every result group and one row per
// input file with the outcome it ended in, so past selections can be listed and
// re-exported without filtering again.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

// Outcome is the final group a file ended in.
type Outcome string

const (
	OutcomeInside    Outcome = "inside"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeExcluded  Outcome = "excluded"
	OutcomeFailed    Outcome = "failed"
)

// Accepted reports whether files with this outcome were selected.
func (o Outcome) Accepted() bool {
	return o == OutcomeInside || o == OutcomeConfirmed
}

// RunInfo describes the parameters of a run being recorded.
type RunInfo struct {
	StartedAt  time.Time
	SourceDir  string
	Area       geo.Area
	DistanceKm float64
	Threads    int
}

// Run is a recorded run.
type Run struct {
	ID         string
	StartedAt  time.Time
	SourceDir  string
	Area       geo.Area
	DistanceKm float64
	Threads    int

	Total     int
	Accepted  int
	Inside    int
	Nearby    int
	Confirmed int
	Rejected  int
	Excluded  int
	Failed    int
	Cached    int
	Duration  time.Duration
}

// FileRecord is the outcome of one file in a recorded run.
type FileRecord struct {
	Path    string
	Outcome Outcome
	Stage   string
	Error   string
}

// Store records runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the report database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database %s: %w", path, err)
	}

	// One connection keeps ":memory:" databases intact and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var runColumns = []string{
	"run_id", "started_at", "source_dir", "area",
	"min_lat", "min_lon", "max_lat", "max_lon",
	"distance_km", "threads",
	"total_files", "accepted_files", "inside_files", "nearby_files",
	"confirmed_files", "rejected_files", "excluded_files", "failed_files",
	"cached_files", "duration_ms",
}

// RecordRun stores result under a new run ID and returns the ID.
func (s *Store) RecordRun(ctx context.Context, info RunInfo, result *filter.Result) (string, error) {
	runID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns(runColumns...).
		Values(
			runID,
			info.StartedAt.UTC().Format(time.RFC3339Nano),
			info.SourceDir,
			info.Area.String(),
			info.Area.MinLat, info.Area.MinLon, info.Area.MaxLat, info.Area.MaxLon,
			info.DistanceKm,
			info.Threads,
			result.Total,
			len(result.Accepted),
			len(result.Inside),
			len(result.Nearby),
			len(result.Confirmed),
			len(result.Rejected),
			len(result.Excluded),
			len(result.Failures),
			result.Cached,
			result.Duration.Milliseconds(),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	// Build the query once with Squirrel, then prepare it for every file row.
	sqlStr, _, err := sq.Insert("run_files").
		Columns("run_id", "file_path", "outcome", "stage", "error").
		Values("", "", "", "", "").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build SQL: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range fileRecords(result) {
		if _, err := stmt.ExecContext(ctx, runID, rec.Path, string(rec.Outcome), rec.Stage, rec.Error); err != nil {
			return "", fmt.Errorf("failed to insert file %s: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

func fileRecords(result *filter.Result) []FileRecord {
	records := make([]FileRecord, 0, result.Total)
	add := func(paths []string, outcome Outcome, stage filter.Stage) {
		for _, path := range paths {
			records = append(records, FileRecord{Path: path, Outcome: outcome, Stage: string(stage)})
		}
	}

	add(result.Inside, OutcomeInside, filter.StagePrefilter)
	add(result.Confirmed, OutcomeConfirmed, filter.StageConfirm)
	add(result.Rejected, OutcomeRejected, filter.StageConfirm)
	add(result.Excluded, OutcomeExcluded, filter.StagePrefilter)
	for _, failure := range result.Failures {
		records = append(records, FileRecord{
			Path:    failure.Path,
			Outcome: OutcomeFailed,
			Stage:   string(failure.Stage),
			Error:   failure.Err.Error(),
		})
	}

	return records
}

// ListRuns returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC", "rowid DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID.
// Returns (nil, nil) if the run does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRowContext(ctx)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var startedAt, area string
	var minLat, minLon, maxLat, maxLon float64
	var durationMs int64

	err := row.Scan(
		&run.ID, &startedAt, &run.SourceDir, &area,
		&minLat, &minLon, &maxLat, &maxLon,
		&run.DistanceKm, &run.Threads,
		&run.Total, &run.Accepted, &run.Inside, &run.Nearby,
		&run.Confirmed, &run.Rejected, &run.Excluded, &run.Failed,
		&run.Cached, &durationMs,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start time of run %s: %w", run.ID, err)
	}
	run.Area = geo.Area{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
	run.Duration = time.Duration(durationMs) * time.Millisecond

	return run, nil
}

// Files returns the file records of a run, sorted by path. With no outcomes
// every record is returned.
func (s *Store) Files(ctx context.Context, runID string, outcomes ...Outcome) ([]FileRecord, error) {
	query := sq.Select("file_path", "outcome", "stage", "error").
		From("run_files").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path")
	if len(outcomes) > 0 {
		values := make([]string, len(outcomes))
		for i, o := range outcomes {
			values[i] = string(o)
		}
		query = query.Where(sq.Eq{"outcome": values})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		var outcome string
		if err := rows.Scan(&rec.Path, &outcome, &rec.Stage, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AcceptedFiles returns the paths accepted by a run, sorted.
func (s *Store) AcceptedFiles(ctx context.Context, runID string) ([]string, error) {
	records, err := s.Files(ctx, runID, OutcomeInside, OutcomeConfirmed)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.Path
	}
	return paths, nil
}

// DeleteRun removes a run and its file records.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := sq.Delete("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}
