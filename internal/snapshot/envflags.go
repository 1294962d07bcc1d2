package snapshot

import (
	"fmt"
	"strings"

	"github.com/sells-group/sitescout/internal/model"
)

// highRiskFloodZones is the fixed set of FEMA zone designations that
// disqualify a site. This is part of the documented algorithm, not
// configuration. Zones beginning with A or V (the Special Flood Hazard
// Area) are covered by the prefix check below; the map holds exact codes
// that need a specific description.
var highRiskFloodZones = map[string]string{
	"A":   "1% annual chance flood zone (no base flood elevation)",
	"AE":  "1% annual chance flood zone with base flood elevation",
	"AH":  "shallow ponding flood zone",
	"AO":  "sheet-flow flood zone",
	"A99": "flood zone pending federal protection system",
	"V":   "coastal high-hazard zone",
	"VE":  "coastal high-hazard zone with wave action",
}

// isHighRiskFloodZone reports whether a FEMA zone code is in the
// disqualifying set: any A- or V-prefixed Special Flood Hazard Area code.
func isHighRiskFloodZone(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	return strings.HasPrefix(code, "A") || strings.HasPrefix(code, "V")
}

// BuildEnvFlags maps a flood zone designation to environmental flags. A
// high-risk zone always produces exactly one critical flag; any other known
// zone produces an informational note; no data produces no flags.
func BuildEnvFlags(floodZoneCode, floodZoneSubtype string) []model.EnvFlag {
	code := strings.ToUpper(strings.TrimSpace(floodZoneCode))
	if code == "" {
		return nil
	}

	if isHighRiskFloodZone(code) {
		desc, ok := highRiskFloodZones[code]
		if !ok {
			desc = "FEMA special flood hazard area"
		}
		text := fmt.Sprintf("FEMA high-risk flood zone %s: %s", code, desc)
		if floodZoneSubtype != "" {
			text += " (" + floodZoneSubtype + ")"
		}
		return []model.EnvFlag{{Description: text, Severity: model.SeverityCritical}}
	}

	return []model.EnvFlag{{
		Description: fmt.Sprintf("flood zone %s: not in a mapped high-risk zone", code),
		Severity:    model.SeverityInfo,
	}}
}
