package scoring

import (
	"math"

	"github.com/sells-group/sitescout/internal/model"
)

// Dimension maxima for the data-center scoring path (40/30/20/10).
const (
	MaxPower         = 40
	MaxFiber         = 30
	MaxWater         = 20
	MaxEnvironmental = 10

	// noSubstationScore is the fixed minimal power/quick score when no
	// substation sits inside the effective radius. Not zero: absence of
	// mapped substations is weak evidence, not proof of no power.
	noSubstationScore = 5

	// fiberNoDataScore is the neutral default when no carrier data is
	// available at all, to avoid over-penalizing missing third-party data.
	fiberNoDataScore = 12

	// waterBaselineScore is the midpoint default when no water-system data
	// is available.
	waterBaselineScore = 12
)

// powerDistanceScore maps nearest-substation distance to the 0-40 base
// power score. Non-increasing in distance.
func powerDistanceScore(miles float64) int {
	switch {
	case miles <= 0.5:
		return 40
	case miles <= 1:
		return 36
	case miles <= 2:
		return 30
	case miles <= 3:
		return 25
	case miles <= 5:
		return 20
	case miles <= 8:
		return 14
	default:
		return 8
	}
}

// voltageTierScore maps substation voltage to a 0-40 tier score.
// Non-decreasing in kV.
func voltageTierScore(kv float64) int {
	switch {
	case kv >= 500:
		return 40
	case kv >= 345:
		return 35
	case kv >= 230:
		return 28
	case kv >= 115:
		return 20
	default:
		return 10
	}
}

// PowerScore computes the 0-40 power dimension: the distance step score
// blended with a voltage-tier bonus, plus a small multi-substation bonus,
// capped at the dimension max. An empty substation list yields the fixed
// minimal score.
func PowerScore(snap *model.InfrastructureSnapshot) int {
	nearest := snap.NearestSubstation()
	if nearest == nil {
		return noSubstationScore
	}

	dist := powerDistanceScore(nearest.DistanceMiles)
	volt := voltageTierScore(nearest.VoltageKV)
	base := int(math.Round(0.7*float64(dist) + 0.3*float64(volt)))

	// Redundancy bonus: 2 points per additional substation in range.
	bonus := clampI(2*(len(snap.Substations)-1), 0, 6)

	return clampI(base+bonus, 0, MaxPower)
}

// FiberScore computes the 0-30 fiber dimension from carrier count and
// proximity to the regional internet exchange. A nil carrier list means no
// data was available and yields a neutral default; an empty non-nil list is
// real data (zero carriers found).
func FiberScore(snap *model.InfrastructureSnapshot) int {
	if snap.FiberCarriers == nil && snap.InternetExchangeMiles == nil {
		return fiberNoDataScore
	}

	var carrier int
	if snap.FiberCarriers == nil {
		carrier = 8 // neutral partial credit when only IX data exists
	} else {
		carrier = clampI(4*len(snap.FiberCarriers), 0, 18)
	}

	return clampI(carrier+ixProximityScore(snap.InternetExchangeMiles), 0, MaxFiber)
}

// ixProximityScore maps internet-exchange distance to a 0-12 bonus with
// diminishing value beyond a cutoff.
func ixProximityScore(miles *float64) int {
	if miles == nil {
		return 4
	}
	switch m := *miles; {
	case m <= 5:
		return 12
	case m <= 15:
		return 10
	case m <= 30:
		return 7
	case m <= 60:
		return 4
	default:
		return 2
	}
}

// WaterScore computes the 0-20 water dimension: a baseline midpoint when no
// water-system data exists, a bonus for known capacity, and a drought-risk
// penalty.
func WaterScore(snap *model.InfrastructureSnapshot) int {
	score := waterBaselineScore
	if snap.WaterCapacityMGD != nil && *snap.WaterCapacityMGD > 0 {
		score += 4
	}
	if snap.DroughtRisk != nil {
		penalty := int(math.Round(clampF(*snap.DroughtRisk, 0, 100) / 10))
		score -= penalty
	}
	return clampI(score, 0, MaxWater)
}

// EnvironmentalScore computes the 0-10 environmental dimension and reports
// whether the site is disqualified. Any critical flag drives the score to
// zero and sets the disqualification gate; warnings reduce the score
// without disqualifying.
func EnvironmentalScore(snap *model.InfrastructureSnapshot) (score int, disqualified bool) {
	score = MaxEnvironmental
	for _, flag := range snap.EnvFlags {
		switch flag.Severity {
		case model.SeverityCritical:
			return 0, true
		case model.SeverityWarning:
			score -= 3
		}
	}
	return clampI(score, 0, MaxEnvironmental), false
}
