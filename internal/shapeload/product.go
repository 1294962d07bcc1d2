// Package shapeload parses HIFLD and county shapefiles into rows for bulk
// loading into the geostore's PostGIS tables.
package shapeload

// Product describes one loadable shapefile layer: the target table, the
// DBF attributes to keep (in column order), and which of them are numeric.
type Product struct {
	Name     string
	Table    string
	Columns  []string
	DBFNames []string
	Numeric  map[string]bool
	GeomType string
}

// Products keyed by CLI name.
var Products = map[string]Product{
	"substations": {
		Name:     "substations",
		Table:    "geo.substations",
		Columns:  []string{"source_id", "name", "voltage_kv", "operator"},
		DBFNames: []string{"ID", "NAME", "MAX_VOLT", "OWNER"},
		Numeric:  map[string]bool{"voltage_kv": true},
		GeomType: "POINT",
	},
	"transmission": {
		Name:     "transmission",
		Table:    "geo.transmission_lines",
		Columns:  []string{"source_id", "voltage_kv", "owner"},
		DBFNames: []string{"ID", "VOLTAGE", "OWNER"},
		Numeric:  map[string]bool{"voltage_kv": true},
		GeomType: "MULTILINESTRING",
	},
	"parcels": {
		Name:     "parcels",
		Table:    "geo.parcels",
		Columns:  []string{"apn", "address", "acres", "zoning"},
		DBFNames: []string{"PARCEL_APN", "SITE_ADDR", "ACREAGE", "ZONING"},
		Numeric:  map[string]bool{"acres": true},
		GeomType: "MULTIPOLYGON",
	},
}

// Schema creates the geostore tables. PostGIS must already be installed.
const Schema = `
CREATE SCHEMA IF NOT EXISTS geo;

CREATE TABLE IF NOT EXISTS geo.substations (
	id         BIGSERIAL PRIMARY KEY,
	source_id  TEXT,
	name       TEXT,
	voltage_kv DOUBLE PRECISION,
	operator   TEXT,
	geom       geometry(POINT, 4326)
);

CREATE TABLE IF NOT EXISTS geo.transmission_lines (
	id         BIGSERIAL PRIMARY KEY,
	source_id  TEXT,
	voltage_kv DOUBLE PRECISION,
	owner      TEXT,
	geom       geometry(MULTILINESTRING, 4326)
);

CREATE TABLE IF NOT EXISTS geo.parcels (
	id      BIGSERIAL PRIMARY KEY,
	apn     TEXT,
	address TEXT,
	acres   DOUBLE PRECISION,
	zoning  TEXT,
	geom    geometry(MULTIPOLYGON, 4326)
);

CREATE INDEX IF NOT EXISTS idx_geo_substations_geom ON geo.substations USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geo_transmission_geom ON geo.transmission_lines USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geo_parcels_geom ON geo.parcels USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_geo_parcels_apn ON geo.parcels (apn);
`
