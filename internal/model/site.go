// Package model defines the shared domain types for parcels, infrastructure
// snapshots, and scoring results.
package model

import (
	"sort"

	"github.com/sells-group/sitescout/internal/geomath"
)

// ParcelIdentity identifies a candidate parcel as returned by a parcel
// adapter. The APN is an opaque external identifier; every other field may
// be absent.
type ParcelIdentity struct {
	APN      string         `json:"apn"`
	Address  string         `json:"address,omitempty"`
	Acres    *float64       `json:"acres,omitempty"`
	Zoning   string         `json:"zoning,omitempty"`
	Centroid *geomath.Point `json:"centroid,omitempty"`
}

// Substation is a power substation near a reference point. DistanceMiles is
// always derived from the reference point via haversine, never taken from
// the upstream record.
type Substation struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	VoltageKV     float64       `json:"voltage_kv"`
	Operator      string        `json:"operator,omitempty"`
	Coordinates   geomath.Point `json:"coordinates"`
	DistanceMiles float64       `json:"distance_miles"`
}

// SortSubstations orders substations by distance ascending, breaking ties by
// descending voltage.
func SortSubstations(subs []Substation) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].DistanceMiles != subs[j].DistanceMiles {
			return subs[i].DistanceMiles < subs[j].DistanceMiles
		}
		return subs[i].VoltageKV > subs[j].VoltageKV
	})
}

// EnvSeverity classifies an environmental flag.
type EnvSeverity string

const (
	SeverityInfo     EnvSeverity = "info"
	SeverityWarning  EnvSeverity = "warning"
	SeverityCritical EnvSeverity = "critical"
)

// EnvFlag is a single environmental finding for a parcel. A critical flag
// always disqualifies the site downstream.
type EnvFlag struct {
	Description string      `json:"description"`
	Severity    EnvSeverity `json:"severity"`
}

// FloodZone is the FEMA flood designation at a point.
type FloodZone struct {
	Code    string `json:"code"`
	Subtype string `json:"subtype,omitempty"`
}

// InfrastructureSnapshot aggregates a single parcel's infrastructure
// context. It is built once per scoring request and never mutated; missing
// upstream data leaves fields at their zero value (or nil), which the
// scorers treat as "no data".
type InfrastructureSnapshot struct {
	// Substations within the effective radius, ordered by distance ascending.
	Substations []Substation `json:"substations"`

	// NearestTransmissionKV is the voltage of the closest transmission line
	// within a fixed short radius, nil when none was found.
	NearestTransmissionKV *float64 `json:"nearest_transmission_kv,omitempty"`

	FloodZoneCode    string `json:"flood_zone_code,omitempty"`
	FloodZoneSubtype string `json:"flood_zone_subtype,omitempty"`

	EnvFlags []EnvFlag `json:"env_flags,omitempty"`

	// FiberCarriers is the deduplicated carrier list at the parcel point.
	// nil means no carrier data was available; an empty non-nil slice means
	// the lookup succeeded and found zero carriers.
	FiberCarriers []string `json:"fiber_carriers,omitempty"`

	// InternetExchangeMiles is the distance to the regional internet
	// exchange, nil when no exchange reference is configured.
	InternetExchangeMiles *float64 `json:"internet_exchange_miles,omitempty"`

	// WaterCapacityMGD is reserved; most adapters do not populate it.
	WaterCapacityMGD *float64 `json:"water_capacity_mgd,omitempty"`

	// DroughtRisk is a 0-100 drought-risk score when available.
	DroughtRisk *float64 `json:"drought_risk,omitempty"`

	// Optional hazard facts; nil means unknown and the corresponding risk
	// predicate is skipped.
	WetlandsOverlap *bool    `json:"wetlands_overlap,omitempty"`
	FaultLineMiles  *float64 `json:"fault_line_miles,omitempty"`
	GradePercent    *float64 `json:"grade_percent,omitempty"`

	UtilityTerritory string `json:"utility_territory,omitempty"`
}

// NearestSubstation returns the closest substation, or nil when none is in
// range. Substations are kept sorted by distance, so this is the first one.
func (s *InfrastructureSnapshot) NearestSubstation() *Substation {
	if s == nil || len(s.Substations) == 0 {
		return nil
	}
	return &s.Substations[0]
}

// CriticalFlag returns the first critical environmental flag, or nil.
func (s *InfrastructureSnapshot) CriticalFlag() *EnvFlag {
	if s == nil {
		return nil
	}
	for i := range s.EnvFlags {
		if s.EnvFlags[i].Severity == SeverityCritical {
			return &s.EnvFlags[i]
		}
	}
	return nil
}
