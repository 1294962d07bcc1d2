package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForComposite(t *testing.T) {
	tests := []struct {
		composite float64
		want      Tier
	}{
		{95, TierPrime},
		{80, TierPrime},
		{79.9, TierStrong},
		{65, TierStrong},
		{64, TierModerate},
		{50, TierModerate},
		{49, TierSpeculative},
		{35, TierSpeculative},
		{34, TierWeak},
		{0, TierWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForComposite(tt.composite), "composite %v", tt.composite)
	}
}

func TestNearestSubstation(t *testing.T) {
	var nilSnap *InfrastructureSnapshot
	assert.Nil(t, nilSnap.NearestSubstation())
	assert.Nil(t, (&InfrastructureSnapshot{}).NearestSubstation())

	snap := &InfrastructureSnapshot{
		Substations: []Substation{
			{Name: "close", DistanceMiles: 0.4},
			{Name: "far", DistanceMiles: 3.1},
		},
	}
	require.NotNil(t, snap.NearestSubstation())
	assert.Equal(t, "close", snap.NearestSubstation().Name)
}

func TestCriticalFlag(t *testing.T) {
	snap := &InfrastructureSnapshot{
		EnvFlags: []EnvFlag{
			{Description: "note", Severity: SeverityInfo},
			{Description: "flood", Severity: SeverityCritical},
		},
	}
	flag := snap.CriticalFlag()
	require.NotNil(t, flag)
	assert.Equal(t, "flood", flag.Description)

	assert.Nil(t, (&InfrastructureSnapshot{}).CriticalFlag())
}

func f(v float64) *float64 { return &v }

func TestSortAndRank_ContiguousAndOrdered(t *testing.T) {
	cands := []RankedCandidate{
		{APN: "quick-low", QuickScore: f(20)},
		{APN: "full-mid", QuickScore: f(90), DCScore: &DCScoreResult{Composite: 55}},
		{APN: "dq-high", QuickScore: f(95), DCScore: &DCScoreResult{Composite: 88, Disqualified: true}},
		{APN: "quick-high", QuickScore: f(70)},
		{APN: "full-high", QuickScore: f(50), DCScore: &DCScoreResult{Composite: 72}},
	}

	SortAndRank(cands)

	got := make([]string, len(cands))
	for i, c := range cands {
		got[i] = c.APN
		assert.Equal(t, i+1, c.Rank)
	}

	// Full non-disqualified by composite, then disqualified, then quick-only
	// by quick score.
	assert.Equal(t, []string{"full-high", "full-mid", "dq-high", "quick-high", "quick-low"}, got)
}

func TestSortAndRank_DisqualifiedNeverAboveScored(t *testing.T) {
	cands := []RankedCandidate{
		{APN: "dq", DCScore: &DCScoreResult{Composite: 99, Disqualified: true}},
		{APN: "weak", DCScore: &DCScoreResult{Composite: 12}},
	}
	SortAndRank(cands)
	assert.Equal(t, "weak", cands[0].APN)
	assert.Equal(t, 1, cands[0].Rank)
	assert.Equal(t, "dq", cands[1].APN)
}

func TestPersonaValid(t *testing.T) {
	assert.True(t, PersonaHyperscale.Valid())
	assert.True(t, PersonaEdgeCompute.Valid())
	assert.True(t, PersonaEnterprise.Valid())
	assert.False(t, Persona("MEGACORP").Valid())
}
