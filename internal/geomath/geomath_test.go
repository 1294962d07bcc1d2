package geomath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineMiles_ZeroForSamePoint(t *testing.T) {
	assert.Zero(t, HaversineMiles(-97.74, 30.27, -97.74, 30.27))
}

func TestHaversineMiles_Symmetric(t *testing.T) {
	d1 := HaversineMiles(-118.24, 34.05, -74.00, 40.71)
	d2 := HaversineMiles(-74.00, 40.71, -118.24, 34.05)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// LA to NYC is roughly 2,445 statute miles.
	d := HaversineMiles(-118.2437, 34.0522, -74.0060, 40.7128)
	assert.InDelta(t, 2445, d, 15)
}

func TestDistance_MatchesHaversine(t *testing.T) {
	a := Point{Lng: -96.8, Lat: 32.78}
	b := Point{Lng: -97.74, Lat: 30.27}
	assert.InDelta(t, HaversineMiles(a.Lng, a.Lat, b.Lng, b.Lat), Distance(a, b), 1e-9)
}

func TestRingCentroid(t *testing.T) {
	ring := []Point{
		{Lng: 0, Lat: 0},
		{Lng: 2, Lat: 0},
		{Lng: 2, Lat: 2},
		{Lng: 0, Lat: 2},
	}
	c, err := RingCentroid(ring)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Lng, 1e-9)
	assert.InDelta(t, 1.0, c.Lat, 1e-9)
}

func TestRingCentroid_EmptyRing(t *testing.T) {
	_, err := RingCentroid(nil)
	assert.Error(t, err)
}

func TestRingCentroid_InvalidVertex(t *testing.T) {
	_, err := RingCentroid([]Point{{Lng: 500, Lat: 0}})
	assert.Error(t, err)
}

func TestViewportBBox(t *testing.T) {
	b := ViewportBBox(32.78, -96.8, 10)
	require.True(t, b.Valid())

	// span = (360 / 2^10) * 3 ≈ 1.0547 degrees.
	assert.InDelta(t, 1.0547, b.East-b.West, 0.001)
	// Vertical span is 0.6x the horizontal span.
	assert.InDelta(t, (b.East-b.West)*0.6, b.North-b.South, 1e-9)
	// Centered on the input point.
	assert.InDelta(t, -96.8, b.Center().Lng, 1e-9)
	assert.InDelta(t, 32.78, b.Center().Lat, 1e-9)
}

func TestViewportBBox_HigherZoomIsSmaller(t *testing.T) {
	wide := ViewportBBox(32.78, -96.8, 8)
	tight := ViewportBBox(32.78, -96.8, 12)
	assert.Less(t, tight.East-tight.West, wide.East-wide.West)
}

func TestBBoxValid(t *testing.T) {
	tests := []struct {
		name string
		bbox BBox
		want bool
	}{
		{"normal", BBox{West: -97, South: 30, East: -96, North: 31}, true},
		{"reversed lng", BBox{West: -96, South: 30, East: -97, North: 31}, false},
		{"reversed lat", BBox{West: -97, South: 31, East: -96, North: 30}, false},
		{"nan bound", BBox{West: nan(), South: 30, East: -96, North: 31}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bbox.Valid())
		})
	}
}

func nan() float64 {
	var z float64
	return z / z
}
