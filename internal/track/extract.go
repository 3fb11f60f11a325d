// Package track reads coordinates out of GPX track files.
//
// Two readers are provided: a cheap line-oriented extractor that only looks for the
// first track point, and a full streaming XML reader that yields every track point.
package track

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

// MaxLineBytes bounds the size of a single line the extractor is willing to buffer.
// Longer lines stop the scan and the file is treated as having no coordinate.
const MaxLineBytes = 16 * 1024 * 1024

var (
	// trackPointTag matches a <trkpt ...> start tag contained in a single line.
	trackPointTag = regexp.MustCompile(`<trkpt\b[^>]*>`)

	// coordinateAttr matches unprefixed lat="..." / lon='...' attributes inside a tag.
	coordinateAttr = regexp.MustCompile(`\s(lat|lon)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// FirstCoordinate scans r line by line and returns the first track point carrying
// both a latitude and a longitude. Lines that do not hold a usable track point are
// skipped. found is false when no such point exists.
func FirstCoordinate(r io.Reader) (coord geo.Coordinate, found bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	for scanner.Scan() {
		if coord, ok := coordinateFromLine(scanner.Bytes()); ok {
			return coord, true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Printf("Warning: line longer than %d bytes, giving up on first coordinate", MaxLineBytes)
			return geo.Coordinate{}, false, nil
		}
		return geo.Coordinate{}, false, err
	}

	return geo.Coordinate{}, false, nil
}

// FirstCoordinateInFile opens path and returns its first track point.
func FirstCoordinateInFile(path string) (geo.Coordinate, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	coord, found, err := FirstCoordinate(f)
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return coord, found, nil
}

// coordinateFromLine returns the first track point tag on the line whose lat and lon
// attributes are both present and numeric.
func coordinateFromLine(line []byte) (geo.Coordinate, bool) {
	for _, loc := range trackPointTag.FindAllIndex(line, -1) {
		tag := line[loc[0]:loc[1]]

		var lat, lon []byte
		var hasLat, hasLon bool
		for _, m := range coordinateAttr.FindAllSubmatch(tag, -1) {
			value := m[2]
			if value == nil {
				value = m[3]
			}
			switch string(m[1]) {
			case "lat":
				lat, hasLat = value, true
			case "lon":
				lon, hasLon = value, true
			}
		}
		if !hasLat || !hasLon {
			continue
		}

		coord, err := parseCoordinate(string(lat), string(lon))
		if err != nil {
			continue
		}
		return coord, true
	}
	return geo.Coordinate{}, false
}

// parseCoordinate parses decimal degree strings, optionally signed.
func parseCoordinate(lat, lon string) (geo.Coordinate, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude %q: %w", lon, err)
	}
	if !isFinite(latitude) || !isFinite(longitude) {
		return geo.Coordinate{}, fmt.Errorf("non-finite coordinate %q, %q", lat, lon)
	}
	return geo.NewCoordinate(latitude, longitude), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
