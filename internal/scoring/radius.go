// Package scoring implements the site-scoring engine: per-dimension
// normalizers over an infrastructure snapshot, persona-weighted composite
// scoring, the cheap quick-score pre-filter, and risk-flag detection. Every
// function here is pure; nothing in this package performs I/O.
package scoring

import "math"

const (
	// minMWTarget and maxMWTarget clamp the capacity target before the
	// radius formula is applied.
	minMWTarget = 0.1
	maxMWTarget = 500

	minRadiusMiles = 1.0
	maxRadiusMiles = 10.0
)

// EffectiveRadius returns the substation search radius in miles for a given
// MW capacity target. Larger developments justify scanning farther for
// adequate power. The function is monotonically non-decreasing in mw and
// bounded to [1, 10] miles.
func EffectiveRadius(mw float64) float64 {
	if math.IsNaN(mw) {
		mw = minMWTarget
	}
	mw = clampF(mw, minMWTarget, maxMWTarget)

	// The slope is chosen so the formula meets the cap at the mw ceiling:
	// 3 + 2.6*log10(500) ≈ 10.02, clamped to maxRadiusMiles.
	r := 3 + 2.6*math.Log10(mw)
	return clampF(r, minRadiusMiles, maxRadiusMiles)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
