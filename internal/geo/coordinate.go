// Package geo provides the coordinate and area geometry used to filter tracks.
//
// Distances use an equirectangular approximation which is accurate enough to decide
// whether a track is "near" an area; it is not meant for geodesic measurements.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Kilometres per degree, from the usual spherical approximations.
const (
	LatitudeKmPerDegree  = 110.574
	LongitudeKmPerDegree = 111.320
)

// ErrInvalidCoordinate indicates a latitude or longitude outside the valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinate creates a coordinate from a latitude and a longitude.
func NewCoordinate(latitude, longitude float64) Coordinate {
	return Coordinate{Latitude: latitude, Longitude: longitude}
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90], got %v", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180], got %v", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.7f, %.7f)", c.Latitude, c.Longitude)
}

// DistanceKm returns the planar distance between a and b in kilometres.
// The longitude scale is taken at a's latitude.
func DistanceKm(a, b Coordinate) float64 {
	deltaLatKm := (a.Latitude - b.Latitude) * LatitudeKmPerDegree
	deltaLonKm := (a.Longitude - b.Longitude) * LongitudeKmPerDegree * math.Cos(toRadians(a.Latitude))

	return math.Hypot(deltaLatKm, deltaLonKm)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
