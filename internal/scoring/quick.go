package scoring

import (
	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
)

// QuickScore ranks a single candidate centroid against a pre-fetched area
// substation set without any network calls. It combines a distance tier, a
// voltage tier, and a count bonus into a 0-100 score, returning the fixed
// minimal score when no substation falls inside the effective radius for
// the MW target.
//
// The area substation set is shared read-only across candidates; this
// function never mutates it.
func QuickScore(centroid geomath.Point, areaSubstations []model.Substation, mwTarget float64) float64 {
	return QuickScoreRadius(centroid, areaSubstations, EffectiveRadius(mwTarget))
}

// QuickScoreRadius is QuickScore with an explicit search radius. Tier-1
// sub-market scoring uses it to score a whole bbox region, where the
// parcel-scale effective radius would be too tight.
func QuickScoreRadius(centroid geomath.Point, areaSubstations []model.Substation, radiusMiles float64) float64 {
	var (
		inRange   int
		nearestMi float64
		nearestKV float64
		foundAny  bool
	)
	for _, sub := range areaSubstations {
		d := geomath.Distance(centroid, sub.Coordinates)
		if d > radiusMiles {
			continue
		}
		inRange++
		if !foundAny || d < nearestMi {
			foundAny = true
			nearestMi = d
			nearestKV = sub.VoltageKV
		}
	}

	if !foundAny {
		return noSubstationScore
	}

	score := powerDistanceScore(nearestMi) + voltageTierScore(nearestKV) + countBonus(inRange)
	return clampF(float64(score), 0, 100)
}

// countBonus awards 4 points per in-range substation, capped at 20.
func countBonus(n int) int {
	return clampI(4*n, 0, 20)
}
