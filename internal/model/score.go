package model

// Persona is a named development profile that determines dimension
// weighting.
type Persona string

const (
	PersonaHyperscale  Persona = "HYPERSCALE"
	PersonaEdgeCompute Persona = "EDGE_COMPUTE"
	PersonaEnterprise  Persona = "ENTERPRISE"
)

// Valid reports whether p is one of the supported personas.
func (p Persona) Valid() bool {
	switch p {
	case PersonaHyperscale, PersonaEdgeCompute, PersonaEnterprise:
		return true
	}
	return false
}

// Tier is the qualitative market label derived from a composite score.
type Tier string

const (
	TierPrime        Tier = "PRIME"
	TierStrong       Tier = "STRONG"
	TierModerate     Tier = "MODERATE"
	TierSpeculative  Tier = "SPECULATIVE"
	TierWeak         Tier = "WEAK"
	TierDisqualified Tier = "DISQUALIFIED"
)

// TierForComposite maps a 0-100 composite to its tier label. Callers must
// override the result with TierDisqualified when the disqualification gate
// fires; the tier thresholds themselves are a pure function of the number.
func TierForComposite(composite float64) Tier {
	switch {
	case composite >= 80:
		return TierPrime
	case composite >= 65:
		return TierStrong
	case composite >= 50:
		return TierModerate
	case composite >= 35:
		return TierSpeculative
	default:
		return TierWeak
	}
}

// NearestSub summarizes the closest substation for score display.
type NearestSub struct {
	VoltageKV     float64 `json:"voltage_kv"`
	DistanceMiles float64 `json:"distance_miles"`
}

// DCScoreResult is the data-center scoring path: four weighted integer
// dimensions on a 40/30/20/10 scale. Composite equals the sum of the four
// dimensions; when Disqualified is true the numeric composite is still the
// raw sum, but consumers must treat the site as excluded regardless of its
// value.
type DCScoreResult struct {
	Composite     int  `json:"composite"`
	Tier          Tier `json:"tier"`
	Power         int  `json:"power"`
	Fiber         int  `json:"fiber"`
	Water         int  `json:"water"`
	Environmental int  `json:"environmental"`

	Disqualified bool     `json:"disqualified"`
	CriticalFlag *EnvFlag `json:"critical_flag,omitempty"`

	NearestSubstation *NearestSub `json:"nearest_substation,omitempty"`
	// Redundancy is true when at least two substations sit inside the
	// effective radius.
	Redundancy bool     `json:"redundancy"`
	RiskFlags  []string `json:"risk_flags,omitempty"`

	// Derived estimates; nil when the required input is unavailable.
	EstimatedMW       *float64 `json:"estimated_mw,omitempty"`
	ConnectionCostUSD *float64 `json:"connection_cost_usd,omitempty"`
}

// SiteScore is the general-CRE scoring path: five 0-20 dimensions blended
// under a persona weight vector into a one-decimal 0-100 composite. It is a
// distinct type from DCScoreResult and the two are never converted into
// each other.
type SiteScore struct {
	Persona   Persona `json:"persona"`
	Composite float64 `json:"composite"`
	Tier      Tier    `json:"tier"`

	// Dimension scores on a 0-20 scale, one decimal.
	Power   float64 `json:"power"`
	Fiber   float64 `json:"fiber"`
	Water   float64 `json:"water"`
	Hazard  float64 `json:"hazard"`
	Acreage float64 `json:"acreage"`

	Disqualified bool     `json:"disqualified"`
	RiskFlags    []string `json:"risk_flags,omitempty"`
}
