package shapeload

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jonas-p/go-shp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestEncodeWKB_Point(t *testing.T) {
	data, err := EncodeWKB(&shp.Point{X: -97.05, Y: 32.5})
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)

	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 4326, pt.SRID())
	assert.Equal(t, -97.05, pt.X())
	assert.Equal(t, 32.5, pt.Y())
}

func TestEncodeWKB_PolyLine(t *testing.T) {
	line := &shp.PolyLine{
		Parts: []int32{0, 2},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 1, Y: 1},
			{X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 4},
		},
	}
	data, err := EncodeWKB(line)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)

	ml, ok := g.(*geom.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, 4326, ml.SRID())
	require.Equal(t, 2, ml.NumLineStrings())
	assert.Equal(t, 2, ml.LineString(0).NumCoords())
	assert.Equal(t, 3, ml.LineString(1).NumCoords())
}

func TestEncodeWKB_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		Parts: []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
		},
	}
	data, err := EncodeWKB(poly)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 4326, mp.SRID())
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 5, mp.Polygon(0).LinearRing(0).NumCoords())
}

func TestEncodeWKB_UnsupportedShape(t *testing.T) {
	_, err := EncodeWKB(&shp.Null{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shape type")
}

func TestAttrValue(t *testing.T) {
	assert.Nil(t, attrValue("", false))
	assert.Nil(t, attrValue("", true))
	assert.Equal(t, "M-1", attrValue("M-1", false))
	assert.Equal(t, 345.0, attrValue("345", true))
	assert.Equal(t, 42.7, attrValue("42.7", true))

	// HIFLD uses -999999 for unknown voltage.
	assert.Nil(t, attrValue("-999999", true))
	assert.Nil(t, attrValue("N/A", true))
}

func TestPartPoints(t *testing.T) {
	points := []shp.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}}

	parts := partPoints([]int32{0, 2}, points)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 2)

	// Degenerate empty part is dropped.
	parts = partPoints([]int32{0, 4}, points)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0], 4)
}

func TestLoad_EmptyRows(t *testing.T) {
	n, err := Load(context.TODO(), nil, Products["substations"], nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestLoad_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	product := Products["substations"]
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "substations"},
		[]string{"source_id", "name", "voltage_kv", "operator", "geom"}).WillReturnResult(2)

	rows := [][]any{
		{"S1", "MIDLOTHIAN", 345.0, "ONCOR", []byte{0x01}},
		{"S2", "VENUS SWITCH", 138.0, "ONCOR", []byte{0x01}},
	}
	n, err := Load(context.Background(), mock, product, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	product := Products["parcels"]
	mock.ExpectCopyFrom(pgx.Identifier{"geo", "parcels"},
		[]string{"apn", "address", "acres", "zoning", "geom"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = Load(context.Background(), mock, product, [][]any{{"126-44-100", "1200 WARD RD", 42.7, "M-1", []byte{0x01}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO geo.parcels")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_UnqualifiedTable(t *testing.T) {
	_, err := Load(context.Background(), nil, Product{Name: "bad", Table: "substations"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not schema-qualified")
}

func TestProducts_GeostoreAlignment(t *testing.T) {
	// Every product targets one of the tables the spatial store queries.
	want := map[string]bool{
		"geo.substations":        true,
		"geo.transmission_lines": true,
		"geo.parcels":            true,
	}
	for name, p := range Products {
		assert.True(t, want[p.Table], "product %s targets unknown table %s", name, p.Table)
		assert.Equal(t, len(p.Columns), len(p.DBFNames), "product %s column mapping mismatch", name)
	}
}
