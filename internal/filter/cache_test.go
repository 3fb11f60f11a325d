package filter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

// Test Plan for DecisionCache:
// - NewDecisionCache rejects a capacity below one
// - A second run reuses every decision and yields the same groups
// - A file whose size or modification time changed is reprocessed
// - Invalidate forces reprocessing of the named files
// - Failed files are never cached

func newTestCache(t *testing.T) *DecisionCache {
	t.Helper()
	cache, err := NewDecisionCache(1000)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestNewDecisionCache_InvalidCapacity(t *testing.T) {
	t.Parallel()

	cache, err := NewDecisionCache(0)
	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestDecisionCache_ReusesDecisions(t *testing.T) {
	t.Parallel()

	set := writeTrackSet(t, t.TempDir())
	f := newTestFilter(t, Options{Cache: newTestCache(t)})

	first, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)
	assert.Zero(t, first.Cached)

	reporter := newRecordingReporter()
	f.progress = reporter

	second, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)

	assert.Equal(t, 5, second.Cached)
	assert.Zero(t, reporter.processed[StagePrefilter])
	assert.Equal(t, first.Accepted, second.Accepted)
	assert.Equal(t, first.Inside, second.Inside)
	assert.Equal(t, first.Nearby, second.Nearby)
	assert.Equal(t, first.Confirmed, second.Confirmed)
	assert.Equal(t, first.Rejected, second.Rejected)
	assert.Equal(t, first.Excluded, second.Excluded)
}

func TestDecisionCache_ChangedFileIsReprocessed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	set := writeTrackSet(t, dir)
	f := newTestFilter(t, Options{Cache: newTestCache(t)})

	first, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)
	assert.NotContains(t, first.Accepted, set.far)

	// The far track now starts inside the area.
	writeTrack(t, dir, "far.gpx", geo.NewCoordinate(12, 12), geo.NewCoordinate(13, 13))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(set.far, future, future))

	second, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)

	assert.Equal(t, 4, second.Cached)
	assert.Contains(t, second.Inside, set.far)
	assert.Contains(t, second.Accepted, set.far)
}

func TestDecisionCache_Invalidate(t *testing.T) {
	t.Parallel()

	set := writeTrackSet(t, t.TempDir())
	cache := newTestCache(t)
	f := newTestFilter(t, Options{Cache: cache})

	_, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)

	cache.Invalidate(set.inside, set.confirmed)

	result, err := f.Run(context.Background(), set.all())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Cached)
	assert.Equal(t, []string{set.inside, set.confirmed}, result.Accepted)
}

func TestDecisionCache_FailuresAreNotCached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	corrupt := writeFile(t, dir, "corrupt.gpx", corruptNearbyTrack)
	f := newTestFilter(t, Options{Cache: newTestCache(t)})

	first, err := f.Run(context.Background(), []string{corrupt})
	require.NoError(t, err)
	require.Len(t, first.Failures, 1)

	second, err := f.Run(context.Background(), []string{corrupt})
	require.NoError(t, err)
	assert.Zero(t, second.Cached)
	assert.Len(t, second.Failures, 1)
}
