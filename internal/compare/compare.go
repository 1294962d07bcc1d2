// Package compare computes per-metric best/worst markers across 2-4 fully
// scored sites for side-by-side display.
package compare

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/sitescout/internal/model"
)

// Site is one fully scored site entering a comparison.
type Site struct {
	APN            string                        `json:"apn"`
	Address        string                        `json:"address,omitempty"`
	Score          model.DCScoreResult           `json:"score"`
	Infrastructure *model.InfrastructureSnapshot `json:"infrastructure,omitempty"`
}

// Direction states which end of a metric is better.
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Row is one comparable metric across the site set. Values holds one entry
// per site in input order; nil means the site has no value for this metric.
// BestIdx/WorstIdx are nil when fewer than two sites have a value.
type Row struct {
	Metric    string     `json:"metric"`
	Direction Direction  `json:"direction"`
	Values    []*float64 `json:"values"`
	BestIdx   *int       `json:"best_idx,omitempty"`
	WorstIdx  *int       `json:"worst_idx,omitempty"`

	// Disqualified marks sites excluded from this row's best/worst
	// computation; only the composite row sets it.
	Disqualified []bool `json:"disqualified,omitempty"`
}

// Table is the finished comparison.
type Table struct {
	Sites []Site `json:"sites"`
	Rows  []Row  `json:"rows"`
}

// Metric row names.
const (
	MetricComposite      = "composite"
	MetricPower          = "power"
	MetricFiber          = "fiber"
	MetricWater          = "water"
	MetricEnvironmental  = "environmental"
	MetricSubDistance    = "nearest_substation_miles"
	MetricSubVoltage     = "nearest_substation_kv"
	MetricCarrierCount   = "fiber_carrier_count"
	MetricIXDistance     = "internet_exchange_miles"
	MetricConnectionCost = "connection_cost_usd"
)

// Compare builds the comparison table for 2-4 fully scored sites.
func Compare(sites []Site) (*Table, error) {
	if len(sites) < 2 || len(sites) > 4 {
		return nil, eris.Errorf("compare: need 2-4 sites, got %d", len(sites))
	}

	rows := []Row{
		compositeRow(sites),
		dimensionRow(sites, MetricPower, func(s Site) *float64 { return intVal(s.Score.Power) }),
		dimensionRow(sites, MetricFiber, func(s Site) *float64 { return intVal(s.Score.Fiber) }),
		dimensionRow(sites, MetricWater, func(s Site) *float64 { return intVal(s.Score.Water) }),
		dimensionRow(sites, MetricEnvironmental, func(s Site) *float64 { return intVal(s.Score.Environmental) }),
		metricRow(sites, MetricSubDistance, LowerIsBetter, func(s Site) *float64 {
			if s.Score.NearestSubstation == nil {
				return nil
			}
			v := s.Score.NearestSubstation.DistanceMiles
			return &v
		}),
		metricRow(sites, MetricSubVoltage, HigherIsBetter, func(s Site) *float64 {
			if s.Score.NearestSubstation == nil {
				return nil
			}
			v := s.Score.NearestSubstation.VoltageKV
			return &v
		}),
		metricRow(sites, MetricCarrierCount, HigherIsBetter, func(s Site) *float64 {
			if s.Infrastructure == nil || s.Infrastructure.FiberCarriers == nil {
				return nil
			}
			v := float64(len(s.Infrastructure.FiberCarriers))
			return &v
		}),
		metricRow(sites, MetricIXDistance, LowerIsBetter, func(s Site) *float64 {
			if s.Infrastructure == nil {
				return nil
			}
			return s.Infrastructure.InternetExchangeMiles
		}),
		metricRow(sites, MetricConnectionCost, LowerIsBetter, func(s Site) *float64 {
			return s.Score.ConnectionCostUSD
		}),
	}

	return &Table{Sites: sites, Rows: rows}, nil
}

// compositeRow excludes disqualified sites from best/worst; they display as
// a distinct marker instead of competing on the number.
func compositeRow(sites []Site) Row {
	row := Row{
		Metric:       MetricComposite,
		Direction:    HigherIsBetter,
		Values:       make([]*float64, len(sites)),
		Disqualified: make([]bool, len(sites)),
	}
	for i, s := range sites {
		v := float64(s.Score.Composite)
		row.Values[i] = &v
		row.Disqualified[i] = s.Score.Disqualified
	}
	row.BestIdx, row.WorstIdx = bestWorst(row.Values, row.Direction, row.Disqualified)
	return row
}

func dimensionRow(sites []Site, metric string, get func(Site) *float64) Row {
	return metricRow(sites, metric, HigherIsBetter, get)
}

func metricRow(sites []Site, metric string, dir Direction, get func(Site) *float64) Row {
	row := Row{
		Metric:    metric,
		Direction: dir,
		Values:    make([]*float64, len(sites)),
	}
	for i, s := range sites {
		row.Values[i] = get(s)
	}
	row.BestIdx, row.WorstIdx = bestWorst(row.Values, dir, nil)
	return row
}

// bestWorst returns the indexes of the best and worst non-null,
// non-excluded values, or nils when fewer than two qualify. Ties keep the
// first occurrence.
func bestWorst(values []*float64, dir Direction, excluded []bool) (best, worst *int) {
	var bestIdx, worstIdx = -1, -1
	count := 0
	for i, v := range values {
		if v == nil {
			continue
		}
		if excluded != nil && excluded[i] {
			continue
		}
		count++
		if bestIdx == -1 {
			bestIdx, worstIdx = i, i
			continue
		}
		if better(*v, *values[bestIdx], dir) {
			bestIdx = i
		}
		if better(*values[worstIdx], *v, dir) {
			worstIdx = i
		}
	}
	if count < 2 {
		return nil, nil
	}
	return &bestIdx, &worstIdx
}

func better(a, b float64, dir Direction) bool {
	if dir == LowerIsBetter {
		return a < b
	}
	return a > b
}

func intVal(v int) *float64 {
	f := float64(v)
	return &f
}
