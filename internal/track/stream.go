package track

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

const trackPointElement = "trkpt"

// ParseError reports a structurally invalid track document.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	name := e.Path
	if name == "" {
		name = "track"
	}
	return fmt.Sprintf("failed to parse %s at line %d, column %d: %v", name, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader streams the track points of a GPX document in document order.
// A Reader is single use; open a new one to read the document again.
type Reader struct {
	dec *xml.Decoder
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return &Reader{dec: dec}
}

// Next returns the next track point. It returns io.EOF once the document is
// exhausted and a *ParseError if the document is malformed. Track points missing
// either coordinate are skipped.
func (r *Reader) Next() (geo.Coordinate, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return geo.Coordinate{}, io.EOF
			}
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				line, column := r.dec.InputPos()
				return geo.Coordinate{}, &ParseError{Line: line, Column: column, Err: err}
			}
			return geo.Coordinate{}, fmt.Errorf("failed to read track: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != trackPointElement {
			continue
		}

		if coord, ok := coordinateFromAttrs(start.Attr); ok {
			return coord, nil
		}
	}
}

// ScanFile streams the track points of path to fn until fn returns false or the
// document ends.
func ScanFile(path string, fn func(geo.Coordinate) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := NewReader(bufio.NewReaderSize(f, 64*1024))
	for {
		coord, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.Path = path
				return parseErr
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !fn(coord) {
			return nil
		}
	}
}

// ReadFile returns every track point of path.
func ReadFile(path string) ([]geo.Coordinate, error) {
	var coords []geo.Coordinate
	err := ScanFile(path, func(c geo.Coordinate) bool {
		coords = append(coords, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	return coords, nil
}

func coordinateFromAttrs(attrs []xml.Attr) (geo.Coordinate, bool) {
	var lat, lon string
	var hasLat, hasLon bool
	for _, attr := range attrs {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "lat":
			lat, hasLat = attr.Value, true
		case "lon":
			lon, hasLon = attr.Value, true
		}
	}
	if !hasLat || !hasLon {
		return geo.Coordinate{}, false
	}

	coord, err := parseCoordinate(lat, lon)
	if err != nil {
		return geo.Coordinate{}, false
	}
	return coord, true
}

// charsetReader decodes documents declaring a non UTF-8 encoding, e.g. ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
