package geo

import (
	"fmt"
	"math"
)

// Area is an axis-aligned rectangle in latitude/longitude space.
//
// The lower bound of each axis is inclusive and the upper bound exclusive, so adjacent
// areas tile the plane without sharing points.
type Area struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// NewArea creates the area spanned by two opposite corners.
// Corners are usually south-west then north-east, but any order is accepted.
func NewArea(a, b Coordinate) Area {
	return Area{
		MinLat: math.Min(a.Latitude, b.Latitude),
		MaxLat: math.Max(a.Latitude, b.Latitude),
		MinLon: math.Min(a.Longitude, b.Longitude),
		MaxLon: math.Max(a.Longitude, b.Longitude),
	}
}

// SouthWest returns the minimum corner.
func (a Area) SouthWest() Coordinate {
	return Coordinate{Latitude: a.MinLat, Longitude: a.MinLon}
}

// NorthEast returns the maximum corner.
func (a Area) NorthEast() Coordinate {
	return Coordinate{Latitude: a.MaxLat, Longitude: a.MaxLon}
}

// Contains reports whether p lies in [MinLat, MaxLat) x [MinLon, MaxLon).
func (a Area) Contains(p Coordinate) bool {
	return p.Longitude >= a.MinLon &&
		p.Longitude < a.MaxLon &&
		p.Latitude >= a.MinLat &&
		p.Latitude < a.MaxLat
}

// ClosestPoint returns the point of the area closest to p, clamping each axis
// independently. Points inside the area are returned unchanged.
func (a Area) ClosestPoint(p Coordinate) Coordinate {
	return Coordinate{
		Latitude:  clamp(p.Latitude, a.MinLat, a.MaxLat),
		Longitude: clamp(p.Longitude, a.MinLon, a.MaxLon),
	}
}

// DistanceKm returns the approximate distance in kilometres from p to the area.
func (a Area) DistanceKm(p Coordinate) float64 {
	return DistanceKm(p, a.ClosestPoint(p))
}

// IsFartherThan reports whether p is more than thresholdKm away from the area.
func (a Area) IsFartherThan(p Coordinate, thresholdKm float64) bool {
	return a.DistanceKm(p) > thresholdKm
}

func (a Area) String() string {
	return fmt.Sprintf("[%s - %s]", a.SouthWest(), a.NorthEast())
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
