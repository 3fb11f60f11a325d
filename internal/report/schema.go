package report

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version written to report_metadata by CreateSchema.
const SchemaVersion = "1"

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	source_dir TEXT NOT NULL,
	area TEXT NOT NULL,
	min_lat REAL NOT NULL,
	min_lon REAL NOT NULL,
	max_lat REAL NOT NULL,
	max_lon REAL NOT NULL,
	distance_km REAL NOT NULL,
	threads INTEGER NOT NULL,
	total_files INTEGER NOT NULL,
	accepted_files INTEGER NOT NULL,
	inside_files INTEGER NOT NULL,
	nearby_files INTEGER NOT NULL,
	confirmed_files INTEGER NOT NULL,
	rejected_files INTEGER NOT NULL,
	excluded_files INTEGER NOT NULL,
	failed_files INTEGER NOT NULL,
	cached_files INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
)`

const createRunFilesTable = `
CREATE TABLE IF NOT EXISTS run_files (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	outcome TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, file_path)
)`

const createReportMetadataTable = `
CREATE TABLE IF NOT EXISTS report_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)",
	"CREATE INDEX IF NOT EXISTS idx_run_files_outcome ON run_files(run_id, outcome)",
}

// CreateSchema creates the report tables and indexes if they do not exist.
// All statements run in one transaction.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"run_files", createRunFilesTable},
		{"report_metadata", createReportMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO report_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap report_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the stored schema version, or "0" for a database
// without report tables.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='report_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check report_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM report_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
