package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for CopyFiles:
// - Copies files by base name into a destination that does not exist yet
// - Preserves content and modification time
// - Overwrites files already present in the destination
// - Reports base name collisions between sources, last source wins
// - A source already in the destination is skipped and keeps its content
// - A missing source aborts with an error
// - No files creates the destination and copies nothing

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCopyFiles(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "accepted", "2024")

	a := writeSource(t, src, "a.gpx", "track a")
	b := writeSource(t, src, "nested/b.gpx", "track bb")

	modTime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(a, modTime, modTime))

	stats, err := CopyFiles([]string{a, b}, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesCopied)
	assert.Equal(t, int64(len("track a")+len("track bb")), stats.BytesCopied)
	assert.Empty(t, stats.Overwritten)

	content, err := os.ReadFile(filepath.Join(dest, "a.gpx"))
	require.NoError(t, err)
	assert.Equal(t, "track a", string(content))

	content, err = os.ReadFile(filepath.Join(dest, "b.gpx"))
	require.NoError(t, err)
	assert.Equal(t, "track bb", string(content))

	info, err := os.Stat(filepath.Join(dest, "a.gpx"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(modTime), "got %v", info.ModTime())
}

func TestCopyFiles_OverwritesExisting(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dest := t.TempDir()

	writeSource(t, dest, "a.gpx", "old content that is longer")
	a := writeSource(t, src, "a.gpx", "new")

	_, err := CopyFiles([]string{a}, dest)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dest, "a.gpx"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestCopyFiles_BaseNameCollision(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dest := t.TempDir()

	first := writeSource(t, src, "2023/ride.gpx", "first")
	second := writeSource(t, src, "2024/ride.gpx", "second")

	stats, err := CopyFiles([]string{first, second}, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesCopied)
	assert.Equal(t, []string{"ride.gpx"}, stats.Overwritten)

	content, err := os.ReadFile(filepath.Join(dest, "ride.gpx"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestCopyFiles_SourceInDestination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeSource(t, dir, "a.gpx", "<gpx>track a</gpx>")
	other := writeSource(t, t.TempDir(), "b.gpx", "track b")

	stats, err := CopyFiles([]string{a, other}, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesCopied)
	assert.Equal(t, []string{a}, stats.Skipped)

	content, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "<gpx>track a</gpx>", string(content))
	assert.FileExists(t, filepath.Join(dir, "b.gpx"))
}

func TestCopyFiles_MissingSource(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dest := t.TempDir()
	a := writeSource(t, src, "a.gpx", "a")

	stats, err := CopyFiles([]string{a, filepath.Join(src, "missing.gpx")}, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, stats.FilesCopied)
}

func TestCopyFiles_NoFiles(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out")
	stats, err := CopyFiles(nil, dest)
	require.NoError(t, err)
	assert.Zero(t, stats.FilesCopied)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
