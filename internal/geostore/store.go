// Package geostore serves substation, transmission, and parcel queries from
// a local PostGIS database loaded via the shapefile importer. It is the
// offline alternative to the HIFLD and county ArcGIS endpoints: same source
// interfaces, no rate limits.
package geostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/snapshot"
)

const metersPerMile = 1609.344

// validTables is an allowlist of table names that may be interpolated into
// spatial queries. This prevents SQL injection through the table parameter.
var validTables = map[string]bool{
	"geo.substations":        true,
	"geo.transmission_lines": true,
	"geo.parcels":            true,
}

func validateTable(table string) error {
	if !validTables[table] {
		return eris.Errorf("geostore: invalid table name %q", table)
	}
	return nil
}

// Querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements snapshot.SubstationSource, snapshot.TransmissionSource,
// and snapshot.ParcelSource over PostGIS.
type Store struct {
	pool Querier
}

// NewStore creates a Store over an open pgx pool.
func NewStore(pool Querier) *Store {
	return &Store{pool: pool}
}

// SubstationsNear returns substations within radiusMiles of the point,
// ordered by proximity. Distances are derived in Go from the returned
// coordinates so they match the haversine used everywhere else.
func (s *Store) SubstationsNear(ctx context.Context, lng, lat, radiusMiles float64) ([]model.Substation, error) {
	origin := geomath.Point{Lng: lng, Lat: lat}
	if !origin.Valid() {
		return nil, eris.Errorf("geostore: invalid point lng=%g lat=%g", lng, lat)
	}

	sql := `
		SELECT source_id, name, voltage_kv, operator, ST_X(geom), ST_Y(geom)
		FROM geo.substations
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
	`
	rows, err := s.pool.Query(ctx, sql, lng, lat, radiusMiles*metersPerMile)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: query substations")
	}
	defer rows.Close()

	var subs []model.Substation
	for rows.Next() {
		var sub model.Substation
		var voltage *float64
		if err := rows.Scan(&sub.ID, &sub.Name, &voltage, &sub.Operator, &sub.Coordinates.Lng, &sub.Coordinates.Lat); err != nil {
			return nil, eris.Wrap(err, "geostore: scan substation")
		}
		if voltage != nil && *voltage > 0 {
			sub.VoltageKV = *voltage
		}
		sub.DistanceMiles = geomath.Distance(origin, sub.Coordinates)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geostore: iterate substations")
	}

	model.SortSubstations(subs)
	return subs, nil
}

// NearestTransmissionKV returns the highest voltage among transmission
// lines within radiusMiles, or nil when none are mapped there.
func (s *Store) NearestTransmissionKV(ctx context.Context, lng, lat, radiusMiles float64) (*float64, error) {
	sql := `
		SELECT MAX(voltage_kv)
		FROM geo.transmission_lines
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		  AND voltage_kv > 0
	`
	var kv *float64
	err := s.pool.QueryRow(ctx, sql, lng, lat, radiusMiles*metersPerMile).Scan(&kv)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "geostore: query transmission")
	}
	return kv, nil
}

// ParcelsInBBox returns parcels intersecting the bbox. Acreage is filtered
// in SQL; zoning prefixes are matched in Go to keep prefix semantics
// identical to the ArcGIS client.
func (s *Store) ParcelsInBBox(ctx context.Context, bbox geomath.BBox, filters snapshot.ParcelFilters) ([]model.ParcelIdentity, error) {
	if !bbox.Valid() {
		return nil, eris.Errorf("geostore: invalid bbox %+v", bbox)
	}

	sql := `
		SELECT apn, address, acres, zoning, ST_X(ST_Centroid(geom)), ST_Y(ST_Centroid(geom))
		FROM geo.parcels
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		  AND acres >= $5
		ORDER BY acres DESC
		LIMIT 500
	`
	rows, err := s.pool.Query(ctx, sql, bbox.West, bbox.South, bbox.East, bbox.North, filters.MinAcres)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: query parcels")
	}
	defer rows.Close()

	var parcels []model.ParcelIdentity
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		if !matchesZoningPrefix(p.Zoning, filters.ZoningPrefixes) {
			continue
		}
		parcels = append(parcels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geostore: iterate parcels")
	}
	return parcels, nil
}

// ParcelByAPN looks up one parcel by assessor parcel number.
func (s *Store) ParcelByAPN(ctx context.Context, apn string) (*model.ParcelIdentity, error) {
	sql := `
		SELECT apn, address, acres, zoning, ST_X(ST_Centroid(geom)), ST_Y(ST_Centroid(geom))
		FROM geo.parcels
		WHERE apn = $1
		LIMIT 1
	`
	rows, err := s.pool.Query(ctx, sql, apn)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: query parcel by apn")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, eris.Wrap(err, "geostore: iterate parcel by apn")
		}
		return nil, eris.Wrapf(snapshot.ErrParcelNotFound, "geostore: %s", apn)
	}
	p, err := scanParcel(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountWithinDistance counts rows of an allowlisted table within a radius
// of a point. The maintenance CLI uses it for load verification.
func (s *Store) CountWithinDistance(ctx context.Context, table string, lng, lat, radiusMiles float64) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`,
		table,
	)
	var n int64
	if err := s.pool.QueryRow(ctx, sql, lng, lat, radiusMiles*metersPerMile).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "geostore: count %s", table)
	}
	return n, nil
}

func scanParcel(rows pgx.Rows) (model.ParcelIdentity, error) {
	var p model.ParcelIdentity
	var address, zoning *string
	var acres *float64
	var lng, lat float64

	if err := rows.Scan(&p.APN, &address, &acres, &zoning, &lng, &lat); err != nil {
		return p, eris.Wrap(err, "geostore: scan parcel")
	}
	if address != nil {
		p.Address = *address
	}
	if zoning != nil {
		p.Zoning = *zoning
	}
	p.Acres = acres
	pt := geomath.Point{Lng: lng, Lat: lat}
	if pt.Valid() {
		p.Centroid = &pt
	}
	return p, nil
}

func matchesZoningPrefix(zoning string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	z := strings.ToUpper(strings.TrimSpace(zoning))
	for _, pre := range prefixes {
		if strings.HasPrefix(z, strings.ToUpper(pre)) {
			return true
		}
	}
	return false
}
