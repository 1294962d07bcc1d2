package model

import (
	"sort"

	"github.com/sells-group/sitescout/internal/geomath"
)

// RankedCandidate is a parcel moving through the two-tier scouting
// pipeline. Tier 1 populates QuickScore only; Tier 2 promotes the candidate
// in place with a full DCScore and InfrastructureSnapshot. Rank is a view
// recomputed after every re-sort, not an identity.
type RankedCandidate struct {
	Rank     int            `json:"rank"`
	APN      string         `json:"apn"`
	Address  string         `json:"address,omitempty"`
	Acres    *float64       `json:"acres,omitempty"`
	Zoning   string         `json:"zoning,omitempty"`
	Centroid *geomath.Point `json:"centroid,omitempty"`

	QuickScore     *float64                `json:"quick_score,omitempty"`
	DCScore        *DCScoreResult          `json:"dc_score,omitempty"`
	Infrastructure *InfrastructureSnapshot `json:"infrastructure,omitempty"`

	// Degraded marks a Tier-2 candidate whose full enrichment failed and
	// whose score was built from the shared area substation set only.
	Degraded bool `json:"degraded,omitempty"`
}

// sortKey orders candidates for ranking: fully scored non-disqualified
// sites first by composite, then disqualified full-scored sites, then
// quick-scored-only candidates by quick score.
func (c *RankedCandidate) sortKey() (band int, score float64) {
	switch {
	case c.DCScore != nil && !c.DCScore.Disqualified:
		return 0, float64(c.DCScore.Composite)
	case c.DCScore != nil:
		return 1, float64(c.DCScore.Composite)
	case c.QuickScore != nil:
		return 2, *c.QuickScore
	default:
		return 3, 0
	}
}

// SortAndRank sorts candidates in place (descending by score within each
// band) and reassigns Rank as a contiguous 1..N sequence. Disqualified
// sites never rank above a non-disqualified fully-scored site.
func SortAndRank(cands []RankedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		bi, si := cands[i].sortKey()
		bj, sj := cands[j].sortKey()
		if bi != bj {
			return bi < bj
		}
		return si > sj
	})
	for i := range cands {
		cands[i].Rank = i + 1
	}
}

// FloodRisk is the coarse flood classification used at sub-market scale.
type FloodRisk string

const (
	FloodRiskLow      FloodRisk = "low"
	FloodRiskModerate FloodRisk = "moderate"
	FloodRiskHigh     FloodRisk = "high"
)

// SubMarketCandidate is the coarse-grained Tier-1 analog of a
// RankedCandidate: a named region scored before any specific parcel is
// chosen.
type SubMarketCandidate struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Center          geomath.Point `json:"center"`
	BBox            geomath.BBox  `json:"bbox"`
	QuickScore      float64       `json:"quick_score"`
	SubstationCount int           `json:"substation_count"`
	MaxVoltageKV    float64       `json:"max_voltage_kv"`
	FloodRisk       FloodRisk     `json:"flood_risk"`
	Rationale       string        `json:"rationale,omitempty"`
}
