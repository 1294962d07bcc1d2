// Package snapshot assembles a parcel's InfrastructureSnapshot from the
// geodata adapter interfaces. The builder tolerates missing data from any
// adapter and only fails on malformed coordinates or on a substation
// transport failure (power data is the one input the scorers cannot
// reasonably default).
package snapshot

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
)

// ErrParcelNotFound is the shared sentinel every ParcelSource wraps when an
// APN lookup matches nothing. It keeps "not found" distinguishable from a
// transport failure regardless of which source is configured.
var ErrParcelNotFound = eris.New("parcel not found")

// SubstationSource returns substations near a point. "None found" is an
// empty slice, not an error.
type SubstationSource interface {
	SubstationsNear(ctx context.Context, lng, lat, radiusMiles float64) ([]model.Substation, error)
}

// TransmissionSource returns the voltage of the nearest transmission line
// within a radius. nil means no line was found.
type TransmissionSource interface {
	NearestTransmissionKV(ctx context.Context, lng, lat, radiusMiles float64) (*float64, error)
}

// FloodSource returns the flood zone at a point. nil means the point is
// outside any mapped zone.
type FloodSource interface {
	FloodZone(ctx context.Context, lng, lat float64) (*model.FloodZone, error)
}

// FiberSource returns broadband carrier names at a point. A nil slice means
// no data; an empty slice means zero carriers.
type FiberSource interface {
	Carriers(ctx context.Context, lat, lng float64) ([]string, error)
}

// ParcelFilters narrows a bbox parcel query.
type ParcelFilters struct {
	MinAcres       float64
	ZoningPrefixes []string
}

// ParcelSource returns candidate parcels. ParcelByAPN wraps
// ErrParcelNotFound when no parcel matches the APN.
type ParcelSource interface {
	ParcelsInBBox(ctx context.Context, bbox geomath.BBox, filters ParcelFilters) ([]model.ParcelIdentity, error)
	ParcelByAPN(ctx context.Context, apn string) (*model.ParcelIdentity, error)
}
