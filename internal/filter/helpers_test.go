package filter

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

const fixturePath = "../../testdata/tracks/9244476879.gpx"

// testArea spans latitudes [10, 20) and longitudes [10, 20).
func testArea() geo.Area {
	return geo.NewArea(geo.NewCoordinate(10, 10), geo.NewCoordinate(20, 20))
}

// trackDocument renders a GPX document with one track point per line.
func trackDocument(points ...geo.Coordinate) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<gpx version=\"1.1\" creator=\"test\">\n")
	b.WriteString(" <trk>\n  <name>test</name>\n  <trkseg>\n")
	for _, p := range points {
		b.WriteString("   <trkpt lat=\"")
		b.WriteString(strconv.FormatFloat(p.Latitude, 'f', -1, 64))
		b.WriteString("\" lon=\"")
		b.WriteString(strconv.FormatFloat(p.Longitude, 'f', -1, 64))
		b.WriteString("\"><ele>100</ele></trkpt>\n")
	}
	b.WriteString("  </trkseg>\n </trk>\n</gpx>\n")
	return b.String()
}

// writeTrack writes a GPX file named name into dir and returns its path.
func writeTrack(t *testing.T, dir, name string, points ...geo.Coordinate) string {
	t.Helper()
	return writeFile(t, dir, name, trackDocument(points...))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// trackSet holds one file per outcome of a run over testArea with a 300 km threshold.
type trackSet struct {
	inside    string
	confirmed string
	rejected  string
	far       string
	empty     string
}

func (s trackSet) all() []string {
	return []string{s.inside, s.confirmed, s.rejected, s.far, s.empty}
}

func writeTrackSet(t *testing.T, dir string) trackSet {
	t.Helper()
	return trackSet{
		inside: writeTrack(t, dir, "inside.gpx",
			geo.NewCoordinate(15, 15), geo.NewCoordinate(30, 30)),
		confirmed: writeTrack(t, dir, "confirmed.gpx",
			geo.NewCoordinate(9.5, 15), geo.NewCoordinate(9.9, 15), geo.NewCoordinate(10, 15)),
		rejected: writeTrack(t, dir, "rejected.gpx",
			geo.NewCoordinate(9.5, 15), geo.NewCoordinate(9, 15), geo.NewCoordinate(20, 15)),
		far: writeTrack(t, dir, "far.gpx",
			geo.NewCoordinate(50, 50), geo.NewCoordinate(15, 15)),
		empty: writeTrack(t, dir, "empty.gpx"),
	}
}

// corruptNearbyTrack starts close to testArea and breaks off mid-document.
const corruptNearbyTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1">
 <trk><trkseg>
   <trkpt lat="9.5" lon="15"></trkpt>
   <trkpt lat="9.6" lon="15">
`

// recordingReporter counts progress callbacks.
type recordingReporter struct {
	mu         sync.Mutex
	discovered int
	started    map[Stage]int
	processed  map[Stage]int
	completed  []Stage
	result     *Result
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		started:   make(map[Stage]int),
		processed: make(map[Stage]int),
	}
}

func (r *recordingReporter) OnDiscoveryComplete(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered = totalFiles
}

func (r *recordingReporter) OnStageStart(stage Stage, totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[stage] = totalFiles
}

func (r *recordingReporter) OnFileProcessed(stage Stage, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[stage]++
}

func (r *recordingReporter) OnStageComplete(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, stage)
}

func (r *recordingReporter) OnComplete(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = result
}
