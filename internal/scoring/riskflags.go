package scoring

import (
	"github.com/sells-group/sitescout/internal/model"
)

// Risk flag identifiers. Each flag is detected by an independent predicate;
// every applicable flag is collected, not just the first.
const (
	RiskHighFloodZone    = "high_risk_flood_zone"
	RiskWetlandsOverlap  = "wetlands_overlap"
	RiskFaultProximity   = "fault_line_proximity"
	RiskSteepGrade       = "steep_grade"
	RiskDrought          = "drought_risk"
	RiskFiberRedundancy  = "limited_fiber_redundancy"
	RiskRemoteSubstation = "remote_substation"
)

const (
	faultProximityMiles  = 5.0
	steepGradePercent    = 4.0
	droughtRiskThreshold = 60.0
	remoteSubstationMi   = 3.0
	minFiberPaths        = 2
)

// DetectRiskFlags evaluates every risk predicate against a snapshot and
// returns all applicable flags. Unknown facts (nil fields) skip their
// predicate rather than flagging.
func DetectRiskFlags(snap *model.InfrastructureSnapshot) []string {
	var flags []string

	if snap.CriticalFlag() != nil {
		flags = append(flags, RiskHighFloodZone)
	}
	if snap.WetlandsOverlap != nil && *snap.WetlandsOverlap {
		flags = append(flags, RiskWetlandsOverlap)
	}
	if snap.FaultLineMiles != nil && *snap.FaultLineMiles <= faultProximityMiles {
		flags = append(flags, RiskFaultProximity)
	}
	if snap.GradePercent != nil && *snap.GradePercent > steepGradePercent {
		flags = append(flags, RiskSteepGrade)
	}
	if snap.DroughtRisk != nil && *snap.DroughtRisk > droughtRiskThreshold {
		flags = append(flags, RiskDrought)
	}
	if snap.FiberCarriers != nil && len(snap.FiberCarriers) < minFiberPaths {
		flags = append(flags, RiskFiberRedundancy)
	}
	if nearest := snap.NearestSubstation(); nearest != nil && nearest.DistanceMiles > remoteSubstationMi {
		flags = append(flags, RiskRemoteSubstation)
	}

	return flags
}
