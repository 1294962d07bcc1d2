package scoring

import (
	"math"

	"github.com/sells-group/sitescout/internal/model"
)

const (
	// mwPerAcre is the capacity density constant for MW estimates.
	mwPerAcre = 6.0

	// connectionCostPerMileUSD estimates the cost of a new power
	// interconnection per mile of distance to the nearest substation.
	connectionCostPerMileUSD = 1_500_000.0
)

// ComputeDCScore runs the data-center scoring path over a snapshot: the
// four 40/30/20/10 dimensions, the disqualification gate, risk flags, and
// the substation summary. The composite is always the raw sum of the four
// dimensions, even when disqualified; Disqualified is a separate gate that
// consumers must check independently of the numeric value.
//
// Deterministic: identical inputs always produce identical output.
func ComputeDCScore(snap *model.InfrastructureSnapshot, mwTarget float64) model.DCScoreResult {
	if snap == nil {
		snap = &model.InfrastructureSnapshot{}
	}

	power := PowerScore(snap)
	fiber := FiberScore(snap)
	water := WaterScore(snap)
	environ, disqualified := EnvironmentalScore(snap)

	composite := power + fiber + water + environ

	res := model.DCScoreResult{
		Composite:     composite,
		Power:         power,
		Fiber:         fiber,
		Water:         water,
		Environmental: environ,
		Disqualified:  disqualified,
		CriticalFlag:  snap.CriticalFlag(),
		Redundancy:    len(snap.Substations) >= 2,
		RiskFlags:     DetectRiskFlags(snap),
	}

	if nearest := snap.NearestSubstation(); nearest != nil {
		res.NearestSubstation = &model.NearestSub{
			VoltageKV:     nearest.VoltageKV,
			DistanceMiles: nearest.DistanceMiles,
		}
		cost := nearest.DistanceMiles * connectionCostPerMileUSD
		res.ConnectionCostUSD = &cost
	}

	if disqualified {
		res.Tier = model.TierDisqualified
	} else {
		res.Tier = model.TierForComposite(float64(composite))
	}

	return res
}

// AttachEstimates fills the acreage-derived capacity estimate on a score
// result. Nil or non-positive acreage leaves the estimate nil.
func AttachEstimates(res *model.DCScoreResult, acres *float64) {
	if res == nil || acres == nil || *acres <= 0 {
		return
	}
	mw := *acres * mwPerAcre
	res.EstimatedMW = &mw
}

// CalculateSiteScore runs the general-CRE scoring path: five 0-20
// dimensions blended under the persona weight vector into a one-decimal
// 0-100 composite. It shares the snapshot normalizers and the
// disqualification gate with the DC path but reports a distinct result
// type.
func CalculateSiteScore(parcel model.ParcelIdentity, snap *model.InfrastructureSnapshot, persona model.Persona) model.SiteScore {
	if snap == nil {
		snap = &model.InfrastructureSnapshot{}
	}

	// Normalize each dimension to 0-100 before weighting.
	powerPct := float64(PowerScore(snap)) / MaxPower * 100
	fiberPct := float64(FiberScore(snap)) / MaxFiber * 100
	waterPct := float64(WaterScore(snap)) / MaxWater * 100
	environ, disqualified := EnvironmentalScore(snap)
	hazardPct := float64(environ) / MaxEnvironmental * 100
	acreagePct := AcreageFit(parcel.Acres, persona)

	w := WeightsFor(persona)
	composite := round1(powerPct*w.Power +
		fiberPct*w.Fiber +
		waterPct*w.Water +
		hazardPct*w.Hazard +
		acreagePct*w.Acreage)

	score := model.SiteScore{
		Persona:      persona,
		Composite:    composite,
		Power:        round1(powerPct / 5),
		Fiber:        round1(fiberPct / 5),
		Water:        round1(waterPct / 5),
		Hazard:       round1(hazardPct / 5),
		Acreage:      round1(acreagePct / 5),
		Disqualified: disqualified,
		RiskFlags:    DetectRiskFlags(snap),
	}

	if disqualified {
		score.Tier = model.TierDisqualified
	} else {
		score.Tier = model.TierForComposite(composite)
	}

	return score
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
