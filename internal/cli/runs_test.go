package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gpx-geo-filter/internal/report"
)

// Test Plan for runs command:
// - Without a report database the command fails with ErrNoReport
// - Listing shows one row per run
// - An empty report prints a notice
// - --run prints the accepted tracks of that run
// - --failed prints the failed tracks with stage and error
// - --export-to copies the accepted tracks again
// - --delete removes the run
// - Unknown runs and --run-only flags without --run are errors

// recordTestRun filters a fresh track folder into reportPath and returns the run ID.
func recordTestRun(t *testing.T, reportPath string) (runID, inside, confirmed string) {
	t.Helper()

	dir := t.TempDir()
	inside, confirmed = writeTracks(t, dir)
	writeFile(t, dir, "broken.gpx", "<gpx><trk><trkseg><trkpt lat=\"9.5\" lon=\"15\"></trkpt><trkpt")

	cfg := testConfig(dir)
	cfg.Output.Report = reportPath

	var out bytes.Buffer
	_, err := executeFilter(context.Background(), cfg, filterOptions{quiet: true}, &out)
	require.ErrorIs(t, err, ErrPartialResult)

	store, err := report.Open(reportPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0].ID, inside, confirmed
}

func TestExecuteRuns_RequiresReport(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := executeRuns(context.Background(), runsOptions{}, &out)
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestExecuteRuns_EmptyReport(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := executeRuns(context.Background(), runsOptions{report: filepath.Join(t.TempDir(), "runs.db")}, &out)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", out.String())
}

func TestExecuteRuns_ListsRuns(t *testing.T) {
	t.Parallel()

	reportPath := filepath.Join(t.TempDir(), "runs.db")
	runID, _, _ := recordTestRun(t, reportPath)

	var out bytes.Buffer
	require.NoError(t, executeRuns(context.Background(), runsOptions{report: reportPath, limit: 20}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "RUN"))
	assert.Contains(t, lines[1], runID)
	assert.Equal(t, []string{"5", "2", "1"}, strings.Fields(lines[1])[4:7])
}

func TestExecuteRuns_ShowsRun(t *testing.T) {
	t.Parallel()

	reportPath := filepath.Join(t.TempDir(), "runs.db")
	runID, inside, confirmed := recordTestRun(t, reportPath)

	var out bytes.Buffer
	require.NoError(t, executeRuns(context.Background(), runsOptions{report: reportPath, runID: runID}, &out))
	assert.Equal(t, confirmed+"\n"+inside+"\n", out.String())

	out.Reset()
	require.NoError(t, executeRuns(context.Background(), runsOptions{report: reportPath, runID: runID, failed: true}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "[confirm] "))
	assert.Contains(t, out.String(), "broken.gpx")
}

func TestExecuteRuns_Export(t *testing.T) {
	t.Parallel()

	reportPath := filepath.Join(t.TempDir(), "runs.db")
	runID, _, _ := recordTestRun(t, reportPath)
	dest := filepath.Join(t.TempDir(), "export")

	var out bytes.Buffer
	require.NoError(t, executeRuns(context.Background(), runsOptions{report: reportPath, runID: runID, exportTo: dest}, &out))

	assert.FileExists(t, filepath.Join(dest, "inside.gpx"))
	assert.FileExists(t, filepath.Join(dest, "confirmed.gpx"))
	assert.NoFileExists(t, filepath.Join(dest, "broken.gpx"))
	assert.Contains(t, out.String(), "✓ Copied 2 files")
}

func TestExecuteRuns_Delete(t *testing.T) {
	t.Parallel()

	reportPath := filepath.Join(t.TempDir(), "runs.db")
	runID, _, _ := recordTestRun(t, reportPath)

	var out bytes.Buffer
	require.NoError(t, executeRuns(context.Background(), runsOptions{report: reportPath, runID: runID, delete: true}, &out))
	assert.Contains(t, out.String(), runID)

	err := executeRuns(context.Background(), runsOptions{report: reportPath, runID: runID}, &out)
	assert.ErrorContains(t, err, "not found")
}

func TestExecuteRuns_RunFlagsRequireRun(t *testing.T) {
	t.Parallel()

	reportPath := filepath.Join(t.TempDir(), "runs.db")
	var out bytes.Buffer
	err := executeRuns(context.Background(), runsOptions{report: reportPath, exportTo: t.TempDir()}, &out)
	assert.Error(t, err)
}
