package snapshot

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scoring"
)

// transmissionRadiusMiles is the fixed short radius for the nearest
// transmission voltage lookup.
const transmissionRadiusMiles = 5.0

// Builder assembles InfrastructureSnapshots from geodata sources. Sources
// other than substations are optional; a nil source simply leaves its
// fields empty.
type Builder struct {
	substations  SubstationSource
	transmission TransmissionSource
	flood        FloodSource
	fiber        FiberSource

	// internet exchange reference, optional.
	ixPoint *geomath.Point
	ixName  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithTransmission sets the transmission line source.
func WithTransmission(src TransmissionSource) Option {
	return func(b *Builder) { b.transmission = src }
}

// WithFlood sets the flood zone source.
func WithFlood(src FloodSource) Option {
	return func(b *Builder) { b.flood = src }
}

// WithFiber sets the broadband carrier source.
func WithFiber(src FiberSource) Option {
	return func(b *Builder) { b.fiber = src }
}

// WithInternetExchange sets the regional internet exchange reference point.
func WithInternetExchange(name string, p geomath.Point) Option {
	return func(b *Builder) {
		b.ixName = name
		b.ixPoint = &p
	}
}

// NewBuilder creates a snapshot Builder. The substation source is required;
// everything else is optional.
func NewBuilder(substations SubstationSource, opts ...Option) *Builder {
	b := &Builder{substations: substations}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles a snapshot for a parcel centroid at a given MW target.
// The substation search radius grows with the target capacity. A substation
// transport failure is returned to the caller (who may degrade to a shared
// area set); failures from the flood, fiber, and transmission sources are
// logged and leave their fields empty per the missing-data policy.
func (b *Builder) Build(ctx context.Context, centroid geomath.Point, mwTarget float64) (*model.InfrastructureSnapshot, error) {
	if !centroid.Valid() {
		return nil, eris.Errorf("snapshot: invalid centroid (%f, %f)", centroid.Lng, centroid.Lat)
	}

	log := zap.L().With(zap.Float64("lng", centroid.Lng), zap.Float64("lat", centroid.Lat))
	radius := scoring.EffectiveRadius(mwTarget)

	subs, err := b.substations.SubstationsNear(ctx, centroid.Lng, centroid.Lat, radius)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: fetch substations")
	}

	snap := &model.InfrastructureSnapshot{
		Substations: EnrichSubstations(centroid, subs),
	}

	if b.transmission != nil {
		kv, txErr := b.transmission.NearestTransmissionKV(ctx, centroid.Lng, centroid.Lat, transmissionRadiusMiles)
		if txErr != nil {
			log.Warn("snapshot: transmission lookup failed", zap.Error(txErr))
		} else {
			snap.NearestTransmissionKV = kv
		}
	}

	if b.flood != nil {
		zone, floodErr := b.flood.FloodZone(ctx, centroid.Lng, centroid.Lat)
		if floodErr != nil {
			log.Warn("snapshot: flood lookup failed", zap.Error(floodErr))
		} else if zone != nil {
			snap.FloodZoneCode = zone.Code
			snap.FloodZoneSubtype = zone.Subtype
		}
	}
	snap.EnvFlags = BuildEnvFlags(snap.FloodZoneCode, snap.FloodZoneSubtype)

	if b.fiber != nil {
		carriers, fiberErr := b.fiber.Carriers(ctx, centroid.Lat, centroid.Lng)
		if fiberErr != nil {
			log.Warn("snapshot: carrier lookup failed", zap.Error(fiberErr))
		} else if carriers != nil {
			snap.FiberCarriers = dedupe(carriers)
		}
	}

	if b.ixPoint != nil {
		d := geomath.Distance(centroid, *b.ixPoint)
		snap.InternetExchangeMiles = &d
	}

	return snap, nil
}

// BuildDegraded constructs a snapshot from an already-fetched area
// substation set only, with no adapter calls. Used when a candidate's full
// enrichment fails: flood, fiber, and transmission fields stay empty and
// the scorers apply their no-data defaults.
func (b *Builder) BuildDegraded(centroid geomath.Point, areaSubstations []model.Substation, mwTarget float64) *model.InfrastructureSnapshot {
	radius := scoring.EffectiveRadius(mwTarget)

	var inRange []model.Substation
	for _, sub := range areaSubstations {
		if geomath.Distance(centroid, sub.Coordinates) <= radius {
			inRange = append(inRange, sub)
		}
	}

	snap := &model.InfrastructureSnapshot{
		Substations: EnrichSubstations(centroid, inRange),
	}
	if b.ixPoint != nil {
		d := geomath.Distance(centroid, *b.ixPoint)
		snap.InternetExchangeMiles = &d
	}
	return snap
}

// EnrichSubstations derives each substation's distance from the reference
// point and returns the set sorted ascending by distance. The input slice
// is not modified.
func EnrichSubstations(ref geomath.Point, subs []model.Substation) []model.Substation {
	out := make([]model.Substation, len(subs))
	copy(out, subs)
	for i := range out {
		out[i].DistanceMiles = geomath.Distance(ref, out[i].Coordinates)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceMiles < out[j].DistanceMiles
	})
	return out
}

// dedupe removes duplicate carrier names, preserving first-seen order.
// Matching is exact; the fiber adapters normalize display casing upstream.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
