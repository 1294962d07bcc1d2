package scoring

import (
	"github.com/sells-group/sitescout/internal/model"
)

// Weights is a persona weight vector over the five general-CRE dimensions.
// Each vector sums to 1.0.
type Weights struct {
	Power   float64
	Fiber   float64
	Water   float64
	Hazard  float64
	Acreage float64
}

// personaWeights is part of the documented algorithm, not deployment
// configuration, and is deliberately a hardcoded table.
var personaWeights = map[model.Persona]Weights{
	// Massive fixed-capacity builds: power dominates.
	model.PersonaHyperscale: {Power: 0.55, Fiber: 0.15, Water: 0.10, Hazard: 0.10, Acreage: 0.10},
	// Latency-sensitive small builds: fiber dominates.
	model.PersonaEdgeCompute: {Power: 0.15, Fiber: 0.50, Water: 0.10, Hazard: 0.10, Acreage: 0.15},
	// Balanced mid-size builds.
	model.PersonaEnterprise: {Power: 0.30, Fiber: 0.25, Water: 0.15, Hazard: 0.15, Acreage: 0.15},
}

// WeightsFor returns the weight vector for a persona, defaulting to
// ENTERPRISE for unknown values.
func WeightsFor(p model.Persona) Weights {
	if w, ok := personaWeights[p]; ok {
		return w
	}
	return personaWeights[model.PersonaEnterprise]
}

// acreageBand is the ideal acreage range for a persona. Max of zero means
// unbounded above.
type acreageBand struct {
	min, max float64
}

var personaAcreage = map[model.Persona]acreageBand{
	model.PersonaHyperscale:  {min: 100},
	model.PersonaEdgeCompute: {min: 5, max: 20},
	model.PersonaEnterprise:  {min: 20, max: 80},
}

// AcreageFit scores how well a parcel's acreage fits the persona's ideal
// band on a 0-100 scale. Inside the band scores 100; the score decays
// linearly below the band and proportionally above it. Nil or non-positive
// acreage floors at 0 — never a division error.
func AcreageFit(acres *float64, p model.Persona) float64 {
	if acres == nil || *acres <= 0 {
		return 0
	}
	band, ok := personaAcreage[p]
	if !ok {
		band = personaAcreage[model.PersonaEnterprise]
	}

	a := *acres
	switch {
	case a < band.min:
		return clampF(a/band.min*100, 0, 100)
	case band.max > 0 && a > band.max:
		// Oversized parcels are usable but dilute the fit.
		return clampF(band.max/a*100, 0, 100)
	default:
		return 100
	}
}
