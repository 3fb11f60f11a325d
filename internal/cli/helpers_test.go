package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/gpx-geo-filter/internal/config"
)

// track renders a GPX document from lat/lon pairs.
func track(points ...[2]float64) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<gpx version=\"1.1\">\n <trk><trkseg>\n")
	for _, p := range points {
		fmt.Fprintf(&b, "   <trkpt lat=\"%g\" lon=\"%g\"></trkpt>\n", p[0], p[1])
	}
	b.WriteString(" </trkseg></trk>\n</gpx>\n")
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeTracks fills dir with tracks around the area [10, 20) x [10, 20):
// one starting inside, one confirmed, one rejected and one far away.
func writeTracks(t *testing.T, dir string) (inside, confirmed string) {
	t.Helper()
	inside = writeFile(t, dir, "inside.gpx", track([2]float64{15, 15}, [2]float64{30, 30}))
	confirmed = writeFile(t, dir, "confirmed.gpx", track([2]float64{9.5, 15}, [2]float64{10, 15}))
	writeFile(t, dir, "rejected.gpx", track([2]float64{9.5, 15}, [2]float64{9, 15}, [2]float64{20, 15}))
	writeFile(t, dir, "far.gpx", track([2]float64{50, 50}, [2]float64{15, 15}))
	return inside, confirmed
}

func float(v float64) *float64 {
	return &v
}

// testConfig returns a configuration selecting [10, 20) x [10, 20) in source.
func testConfig(source string) *config.Config {
	cfg := config.Default()
	cfg.Area = config.AreaConfig{
		FirstLat:  float(10),
		FirstLon:  float(10),
		SecondLat: float(20),
		SecondLon: float(20),
	}
	cfg.Filter.Threads = 2
	cfg.Paths.Source = source
	return cfg
}
