package shapeload

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const srid = 4326

// EncodeWKB converts a shapefile geometry to EWKB (SRID 4326, little-endian)
// suitable for COPY into a PostGIS geometry column.
func EncodeWKB(shape shp.Shape) ([]byte, error) {
	var g geom.T
	switch s := shape.(type) {
	case *shp.Point:
		g = geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid)
	case *shp.PolyLine:
		ml := geom.NewMultiLineString(geom.XY).SetSRID(srid)
		for _, part := range partPoints(s.Parts, s.Points) {
			line := geom.NewLineStringFlat(geom.XY, flatCoords(part))
			if err := ml.Push(line); err != nil {
				return nil, eris.Wrap(err, "shapeload: push linestring")
			}
		}
		g = ml
	case *shp.Polygon:
		// Shapefile polygons store all rings flat; treat each outer-wound
		// ring as its own polygon, which is what the obstacle layers ship.
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
		for _, part := range partPoints(s.Parts, s.Points) {
			ring := geom.NewLinearRingFlat(geom.XY, flatCoords(part))
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(ring); err != nil {
				return nil, eris.Wrap(err, "shapeload: push ring")
			}
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrap(err, "shapeload: push polygon")
			}
		}
		g = mp
	default:
		return nil, eris.Errorf("shapeload: unsupported shape type %T", shape)
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "shapeload: marshal ewkb")
	}
	return data, nil
}

// partPoints splits a shapefile's flat point slice into its parts.
func partPoints(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

func flatCoords(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
