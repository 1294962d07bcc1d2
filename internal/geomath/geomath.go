// Package geomath provides the small geographic primitives used by the
// scoring and scouting packages: great-circle distance, ring centroids, and
// viewport-derived bounding boxes. All functions are pure.
package geomath

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMiles is the mean Earth radius used for great-circle math.
const EarthRadiusMiles = 3958.8

// Point is a WGS84 coordinate pair.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the point has finite coordinates inside the WGS84
// domain.
func (p Point) Valid() bool {
	return isFinite(p.Lng) && isFinite(p.Lat) &&
		p.Lng >= -180 && p.Lng <= 180 &&
		p.Lat >= -90 && p.Lat <= 90
}

// BBox is a geographic bounding box in west/south/east/north order.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Valid reports whether the bbox has finite, non-reversed bounds.
func (b BBox) Valid() bool {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if !isFinite(v) {
			return false
		}
	}
	return b.West < b.East && b.South < b.North &&
		b.South >= -90 && b.North <= 90
}

// Center returns the midpoint of the bbox.
func (b BBox) Center() Point {
	return Point{
		Lng: (b.West + b.East) / 2,
		Lat: (b.South + b.North) / 2,
	}
}

// DiagonalMiles returns the great-circle length of the bbox diagonal.
func (b BBox) DiagonalMiles() float64 {
	return HaversineMiles(b.West, b.South, b.East, b.North)
}

// HaversineMiles returns the great-circle distance in statute miles between
// two lng/lat points. It is symmetric and zero for identical points.
func HaversineMiles(lng1, lat1, lng2, lat2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Distance returns the great-circle distance in miles between two points.
func Distance(a, b Point) float64 {
	return HaversineMiles(a.Lng, a.Lat, b.Lng, b.Lat)
}

// RingCentroid returns the arithmetic mean of a polygon ring's vertices.
// This is not an area-weighted centroid; it matches the approximation the
// parcel adapters have always used and is adequate at parcel scale.
func RingCentroid(ring []Point) (Point, error) {
	if len(ring) == 0 {
		return Point{}, eris.New("geomath: empty ring")
	}

	var sumLng, sumLat float64
	for _, p := range ring {
		if !p.Valid() {
			return Point{}, eris.Errorf("geomath: invalid ring vertex (%f, %f)", p.Lng, p.Lat)
		}
		sumLng += p.Lng
		sumLat += p.Lat
	}

	n := float64(len(ring))
	return Point{Lng: sumLng / n, Lat: sumLat / n}, nil
}

// ViewportBBox derives an approximate bounding box from a map center and
// zoom level. The horizontal span is (360 / 2^zoom) * 3 degrees; the
// vertical span is scaled by 0.6 to approximate a typical viewport aspect
// ratio.
func ViewportBBox(lat, lng float64, zoom int) BBox {
	if zoom < 0 {
		zoom = 0
	}
	span := (360.0 / math.Pow(2, float64(zoom))) * 3
	vSpan := span * 0.6

	return BBox{
		West:  lng - span/2,
		South: lat - vSpan/2,
		East:  lng + span/2,
		North: lat + vSpan/2,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
