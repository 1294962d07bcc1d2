package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
)

func f(v float64) *float64 { return &v }

func sub(name string, kv, distMiles float64) model.Substation {
	return model.Substation{Name: name, VoltageKV: kv, DistanceMiles: distMiles}
}

func TestEffectiveRadius_MonotoneAndBounded(t *testing.T) {
	prev := 0.0
	for _, mw := range []float64{0.01, 0.1, 1, 5, 10, 50, 100, 500, 5000} {
		r := EffectiveRadius(mw)
		assert.GreaterOrEqual(t, r, prev, "radius must be non-decreasing at mw=%v", mw)
		assert.GreaterOrEqual(t, r, minRadiusMiles)
		assert.LessOrEqual(t, r, maxRadiusMiles)
		prev = r
	}
}

func TestEffectiveRadius_SmallAndLargeLoads(t *testing.T) {
	assert.Less(t, EffectiveRadius(1), 4.0, "small loads get a small radius")
	assert.Equal(t, maxRadiusMiles, EffectiveRadius(500), "cap reached at the mw ceiling")
	assert.Equal(t, maxRadiusMiles, EffectiveRadius(10000), "huge loads hit the cap")
}

func TestPowerDistanceScore_NonIncreasing(t *testing.T) {
	prev := 41
	for _, d := range []float64{0.1, 0.5, 0.9, 1, 1.5, 2, 3, 4, 5, 7, 8, 20} {
		s := powerDistanceScore(d)
		assert.LessOrEqual(t, s, prev, "distance score must not increase at %v mi", d)
		prev = s
	}
}

func TestVoltageTierScore_NonDecreasing(t *testing.T) {
	prev := 0
	for _, kv := range []float64{12, 69, 115, 138, 230, 345, 500, 765} {
		s := voltageTierScore(kv)
		assert.GreaterOrEqual(t, s, prev, "voltage score must not decrease at %v kV", kv)
		prev = s
	}
}

func TestPowerScore_FullPower(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		Substations: []model.Substation{
			sub("alpha", 500, 0.4),
			sub("bravo", 345, 1.8),
			sub("charlie", 138, 3.2),
		},
	}
	assert.Equal(t, MaxPower, PowerScore(snap))
}

func TestPowerScore_NoSubstations(t *testing.T) {
	assert.Equal(t, noSubstationScore, PowerScore(&model.InfrastructureSnapshot{}))
}

func TestFiberScore_NoDataDefault(t *testing.T) {
	assert.Equal(t, fiberNoDataScore, FiberScore(&model.InfrastructureSnapshot{}))
}

func TestFiberScore_ZeroCarriersIsData(t *testing.T) {
	snap := &model.InfrastructureSnapshot{FiberCarriers: []string{}}
	assert.Less(t, FiberScore(snap), fiberNoDataScore,
		"a confirmed zero-carrier lookup scores below the no-data default")
}

func TestFiberScore_Bounds(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		FiberCarriers:         []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		InternetExchangeMiles: f(1),
	}
	assert.Equal(t, MaxFiber, FiberScore(snap))
}

func TestWaterScore_DroughtPenalty(t *testing.T) {
	base := WaterScore(&model.InfrastructureSnapshot{})
	assert.Equal(t, waterBaselineScore, base)

	dry := WaterScore(&model.InfrastructureSnapshot{DroughtRisk: f(80)})
	assert.Less(t, dry, base)
	assert.GreaterOrEqual(t, dry, 0)
}

func TestEnvironmentalScore_CriticalDisqualifies(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		EnvFlags: []model.EnvFlag{{Description: "flood", Severity: model.SeverityCritical}},
	}
	score, dq := EnvironmentalScore(snap)
	assert.Zero(t, score)
	assert.True(t, dq)
}

func TestComputeDCScore_FullPowerNoFlood(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		Substations: []model.Substation{
			sub("alpha", 500, 0.4),
			sub("bravo", 345, 1.8),
			sub("charlie", 138, 3.2),
		},
	}

	res := ComputeDCScore(snap, 100)

	assert.Equal(t, MaxPower, res.Power)
	assert.Equal(t, MaxEnvironmental, res.Environmental)
	assert.False(t, res.Disqualified)
	assert.True(t, res.Redundancy)
	require.NotNil(t, res.NearestSubstation)
	assert.InDelta(t, 0.4, res.NearestSubstation.DistanceMiles, 1e-9)
	assert.InDelta(t, 500, res.NearestSubstation.VoltageKV, 1e-9)
	require.NotNil(t, res.ConnectionCostUSD)
	assert.InDelta(t, 0.4*connectionCostPerMileUSD, *res.ConnectionCostUSD, 1e-6)
}

func TestComputeDCScore_DisqualifyingFlood(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		Substations: []model.Substation{
			sub("alpha", 500, 0.4),
			sub("bravo", 345, 1.8),
			sub("charlie", 138, 3.2),
		},
		FloodZoneCode: "AE",
		EnvFlags: []model.EnvFlag{
			{Description: "FEMA high-risk flood zone AE", Severity: model.SeverityCritical},
		},
	}

	res := ComputeDCScore(snap, 100)

	assert.True(t, res.Disqualified)
	assert.Equal(t, model.TierDisqualified, res.Tier)
	assert.Zero(t, res.Environmental)
	require.NotNil(t, res.CriticalFlag)
	assert.Equal(t, model.SeverityCritical, res.CriticalFlag.Severity)
	assert.Contains(t, res.RiskFlags, RiskHighFloodZone)
	// Power stays high; disqualification is a gate, not a score.
	assert.Equal(t, MaxPower, res.Power)
}

func TestComputeDCScore_CompositeDecomposition(t *testing.T) {
	snaps := []*model.InfrastructureSnapshot{
		{},
		{Substations: []model.Substation{sub("a", 500, 0.4)}},
		{Substations: []model.Substation{sub("a", 69, 7.5)}, FiberCarriers: []string{"x", "y"}},
		{DroughtRisk: f(90), InternetExchangeMiles: f(120)},
	}
	for i, snap := range snaps {
		res := ComputeDCScore(snap, 50)
		if !res.Disqualified {
			assert.Equal(t, res.Power+res.Fiber+res.Water+res.Environmental, res.Composite,
				"snapshot %d: composite must decompose", i)
		}
	}
}

func TestComputeDCScore_BoundsAllNull(t *testing.T) {
	res := ComputeDCScore(&model.InfrastructureSnapshot{}, 1)
	assert.GreaterOrEqual(t, res.Power, 0)
	assert.LessOrEqual(t, res.Power, MaxPower)
	assert.GreaterOrEqual(t, res.Fiber, 0)
	assert.LessOrEqual(t, res.Fiber, MaxFiber)
	assert.GreaterOrEqual(t, res.Water, 0)
	assert.LessOrEqual(t, res.Water, MaxWater)
	assert.GreaterOrEqual(t, res.Environmental, 0)
	assert.LessOrEqual(t, res.Environmental, MaxEnvironmental)
	assert.GreaterOrEqual(t, res.Composite, 0)
	assert.LessOrEqual(t, res.Composite, 100)
	assert.Nil(t, res.NearestSubstation)
	assert.Nil(t, res.ConnectionCostUSD)
}

func TestComputeDCScore_Deterministic(t *testing.T) {
	snap := &model.InfrastructureSnapshot{
		Substations:   []model.Substation{sub("a", 230, 1.2), sub("b", 115, 2.9)},
		FiberCarriers: []string{"Zayo", "Lumen", "AT&T"},
		DroughtRisk:   f(30),
	}
	first := ComputeDCScore(snap, 75)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ComputeDCScore(snap, 75))
	}
}

func TestQuickScore_NoSubstationsInRange(t *testing.T) {
	center := geomath.Point{Lng: -97.0, Lat: 31.0}
	// One substation roughly 70 miles away, far outside any effective radius.
	far := []model.Substation{{
		VoltageKV:   500,
		Coordinates: geomath.Point{Lng: -97.0, Lat: 32.0},
	}}

	assert.Equal(t, float64(noSubstationScore), QuickScore(center, far, 100))
	assert.Equal(t, float64(noSubstationScore), QuickScore(center, nil, 100))
}

func TestQuickScore_BoundsAndMonotonicity(t *testing.T) {
	center := geomath.Point{Lng: -97.0, Lat: 31.0}
	near := []model.Substation{
		{VoltageKV: 500, Coordinates: geomath.Point{Lng: -97.0, Lat: 31.004}}, // ~0.3 mi
		{VoltageKV: 345, Coordinates: geomath.Point{Lng: -97.02, Lat: 31.0}},
		{VoltageKV: 138, Coordinates: geomath.Point{Lng: -97.0, Lat: 31.03}},
	}

	s := QuickScore(center, near, 100)
	assert.Greater(t, s, 80.0)
	assert.LessOrEqual(t, s, 100.0)

	// A weaker area set scores lower.
	weak := []model.Substation{
		{VoltageKV: 69, Coordinates: geomath.Point{Lng: -97.0, Lat: 31.05}},
	}
	assert.Less(t, QuickScore(center, weak, 100), s)
}

func TestQuickScore_DoesNotMutateInput(t *testing.T) {
	center := geomath.Point{Lng: -97.0, Lat: 31.0}
	subs := []model.Substation{
		{VoltageKV: 345, Coordinates: geomath.Point{Lng: -97.01, Lat: 31.0}, DistanceMiles: 99},
	}
	QuickScore(center, subs, 50)
	assert.Equal(t, 99.0, subs[0].DistanceMiles, "shared area set must stay untouched")
}

func TestAcreageFit_Bands(t *testing.T) {
	tests := []struct {
		name    string
		persona model.Persona
		acres   *float64
		want    float64
	}{
		{"hyperscale ideal", model.PersonaHyperscale, f(150), 100},
		{"hyperscale half", model.PersonaHyperscale, f(50), 50},
		{"edge inside band", model.PersonaEdgeCompute, f(10), 100},
		{"edge oversized decays", model.PersonaEdgeCompute, f(40), 50},
		{"enterprise inside band", model.PersonaEnterprise, f(40), 100},
		{"nil acres", model.PersonaHyperscale, nil, 0},
		{"zero acres", model.PersonaEnterprise, f(0), 0},
		{"negative acres", model.PersonaEnterprise, f(-3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AcreageFit(tt.acres, tt.persona), 0.01)
		})
	}
}

func TestWeights_SumToOne(t *testing.T) {
	for persona, w := range personaWeights {
		sum := w.Power + w.Fiber + w.Water + w.Hazard + w.Acreage
		assert.InDelta(t, 1.0, sum, 1e-9, "weights for %s must sum to 1", persona)
	}
}

func TestCalculateSiteScore_PersonaShiftsComposite(t *testing.T) {
	parcel := model.ParcelIdentity{APN: "123", Acres: f(150)}
	snap := &model.InfrastructureSnapshot{
		Substations:   []model.Substation{sub("a", 500, 0.4), sub("b", 345, 2)},
		FiberCarriers: []string{"Zayo"},
	}

	hyper := CalculateSiteScore(parcel, snap, model.PersonaHyperscale)
	edge := CalculateSiteScore(parcel, snap, model.PersonaEdgeCompute)

	// Strong power, weak fiber: the power-weighted persona scores higher.
	assert.Greater(t, hyper.Composite, edge.Composite)
	assert.Equal(t, model.PersonaHyperscale, hyper.Persona)
}

func TestCalculateSiteScore_DimensionBounds(t *testing.T) {
	score := CalculateSiteScore(model.ParcelIdentity{}, &model.InfrastructureSnapshot{}, model.PersonaEnterprise)
	for name, v := range map[string]float64{
		"power": score.Power, "fiber": score.Fiber, "water": score.Water,
		"hazard": score.Hazard, "acreage": score.Acreage,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 20.0, name)
	}
	assert.GreaterOrEqual(t, score.Composite, 0.0)
	assert.LessOrEqual(t, score.Composite, 100.0)
}

func TestCalculateSiteScore_DisqualificationDominates(t *testing.T) {
	parcel := model.ParcelIdentity{APN: "123", Acres: f(150)}
	snap := &model.InfrastructureSnapshot{
		Substations:   []model.Substation{sub("a", 500, 0.3), sub("b", 500, 0.9)},
		FiberCarriers: []string{"Zayo", "Lumen", "AT&T", "Cogent", "Crown Castle"},
		EnvFlags:      []model.EnvFlag{{Description: "floodway", Severity: model.SeverityCritical}},
	}

	score := CalculateSiteScore(parcel, snap, model.PersonaHyperscale)
	assert.True(t, score.Disqualified)
	assert.Equal(t, model.TierDisqualified, score.Tier)
}

func TestDetectRiskFlags_AllApplicable(t *testing.T) {
	wetlands := true
	snap := &model.InfrastructureSnapshot{
		Substations:     []model.Substation{sub("a", 115, 4.2)},
		EnvFlags:        []model.EnvFlag{{Description: "zone VE", Severity: model.SeverityCritical}},
		WetlandsOverlap: &wetlands,
		FaultLineMiles:  f(2),
		GradePercent:    f(6.5),
		DroughtRisk:     f(75),
		FiberCarriers:   []string{"only-one"},
	}

	flags := DetectRiskFlags(snap)
	for _, want := range []string{
		RiskHighFloodZone, RiskWetlandsOverlap, RiskFaultProximity,
		RiskSteepGrade, RiskDrought, RiskFiberRedundancy, RiskRemoteSubstation,
	} {
		assert.Contains(t, flags, want)
	}
}

func TestDetectRiskFlags_UnknownFactsSkip(t *testing.T) {
	assert.Empty(t, DetectRiskFlags(&model.InfrastructureSnapshot{}))
}

func TestAttachEstimates(t *testing.T) {
	res := model.DCScoreResult{}
	AttachEstimates(&res, f(100))
	require.NotNil(t, res.EstimatedMW)
	assert.InDelta(t, 600, *res.EstimatedMW, 1e-9)

	var empty model.DCScoreResult
	AttachEstimates(&empty, nil)
	assert.Nil(t, empty.EstimatedMW)
	AttachEstimates(&empty, f(0))
	assert.Nil(t, empty.EstimatedMW)
}
