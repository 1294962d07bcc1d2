package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scoring"
	"github.com/sells-group/sitescout/pkg/anthropic"
)

const defaultMaxSubMarkets = 6

// DiscoverRequest is a Tier-1 open discovery over a free-text project
// brief.
type DiscoverRequest struct {
	Query         string
	MWTarget      float64
	MaxSubMarkets int
}

func (r DiscoverRequest) withDefaults() DiscoverRequest {
	if r.MWTarget <= 0 {
		r.MWTarget = defaultMWTarget
	}
	if r.MaxSubMarkets <= 0 {
		r.MaxSubMarkets = defaultMaxSubMarkets
	}
	return r
}

const discoverSystemPrompt = `You are a data center site selection analyst.
Given a project brief, identify candidate sub-markets: named metro areas or
corridors in the continental United States suited to the brief.

Respond with ONLY a JSON array, no prose, where each element is:
{"id": "short-slug", "name": "Display Name", "center": {"lng": ..., "lat": ...},
 "bbox": {"west": ..., "south": ..., "east": ..., "north": ...},
 "rationale": "one sentence"}

Emit at most %d elements. Coordinates are WGS84 degrees. The bbox must
contain the center and span no more than two degrees on a side.`

// subMarketExtract is the JSON shape Claude is asked to produce.
type subMarketExtract struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Center struct {
		Lng float64 `json:"lng"`
		Lat float64 `json:"lat"`
	} `json:"center"`
	BBox struct {
		West  float64 `json:"west"`
		South float64 `json:"south"`
		East  float64 `json:"east"`
		North float64 `json:"north"`
	} `json:"bbox"`
	Rationale string `json:"rationale"`
}

// Discover runs Tier-1 open discovery: Claude extracts candidate
// sub-markets from the brief, and each validated region is quick-scored
// against live substation data at bbox scale. Results are ranked by quick
// score descending.
func (p *Pipeline) Discover(ctx context.Context, req DiscoverRequest, emit EmitFunc) ([]model.SubMarketCandidate, error) {
	emit = gateEmit(ctx, emit)
	req = req.withDefaults()

	if strings.TrimSpace(req.Query) == "" {
		err := eris.Wrap(ErrInvalidRequest, "empty query")
		p.fail(emit, err)
		return nil, err
	}
	if p.llm == nil {
		err := eris.New("scout: discovery requires an LLM client")
		p.fail(emit, err)
		return nil, err
	}

	emit(Event{Type: EventStatus, Message: "extracting sub-markets"})
	regions, err := p.extractSubMarkets(ctx, req)
	if err != nil {
		p.fail(emit, err)
		return nil, err
	}

	emit(Event{Type: EventStatus, Message: "scoring sub-markets"})
	subMarkets := make([]model.SubMarketCandidate, 0, len(regions))
	for _, region := range regions {
		sm, scoreErr := p.scoreSubMarket(ctx, region, req.MWTarget)
		if scoreErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("sub-market scoring failed, skipping",
				zap.String("name", region.Name),
				zap.Error(scoreErr))
			continue
		}
		subMarkets = append(subMarkets, sm)
	}

	sort.SliceStable(subMarkets, func(i, j int) bool {
		return subMarkets[i].QuickScore > subMarkets[j].QuickScore
	})

	emit(Event{Type: EventSubMarkets, SubMarkets: subMarkets})
	emit(Event{Type: EventDone})
	return subMarkets, nil
}

func (p *Pipeline) extractSubMarkets(ctx context.Context, req DiscoverRequest) ([]subMarketExtract, error) {
	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.llmModel,
		MaxTokens: 2048,
		System: []anthropic.SystemBlock{
			{Text: fmt.Sprintf(discoverSystemPrompt, req.MaxSubMarkets)},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: req.Query},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "scout: extract sub-markets")
	}
	resp.Usage.LogCost(p.llmModel, "discover")

	raw := stripCodeFence(resp.Text())
	var extracts []subMarketExtract
	if err := json.Unmarshal([]byte(raw), &extracts); err != nil {
		return nil, eris.Wrap(err, "scout: parse sub-market extraction")
	}

	valid := extracts[:0]
	for _, e := range extracts {
		bbox := geomath.BBox{West: e.BBox.West, South: e.BBox.South, East: e.BBox.East, North: e.BBox.North}
		center := geomath.Point{Lng: e.Center.Lng, Lat: e.Center.Lat}
		if !bbox.Valid() || !center.Valid() || strings.TrimSpace(e.Name) == "" {
			zap.L().Warn("dropping malformed sub-market extraction", zap.String("name", e.Name))
			continue
		}
		valid = append(valid, e)
		if len(valid) >= req.MaxSubMarkets {
			break
		}
	}
	return valid, nil
}

// scoreSubMarket quick-scores one region at bbox scale with a widened
// radius and classifies its flood risk from the FEMA zone at the center.
func (p *Pipeline) scoreSubMarket(ctx context.Context, region subMarketExtract, mwTarget float64) (model.SubMarketCandidate, error) {
	bbox := geomath.BBox{West: region.BBox.West, South: region.BBox.South, East: region.BBox.East, North: region.BBox.North}
	center := geomath.Point{Lng: region.Center.Lng, Lat: region.Center.Lat}

	radius := bbox.DiagonalMiles()/2 + scoring.EffectiveRadius(mwTarget) + areaBufferMiles
	subs, err := p.substations.SubstationsNear(ctx, center.Lng, center.Lat, radius)
	if err != nil {
		return model.SubMarketCandidate{}, eris.Wrap(err, "scout: sub-market substations")
	}

	var maxKV float64
	for _, s := range subs {
		if s.VoltageKV > maxKV {
			maxKV = s.VoltageKV
		}
	}

	return model.SubMarketCandidate{
		ID:              region.ID,
		Name:            region.Name,
		Center:          center,
		BBox:            bbox,
		QuickScore:      scoring.QuickScoreRadius(center, subs, radius),
		SubstationCount: len(subs),
		MaxVoltageKV:    maxKV,
		FloodRisk:       p.floodRiskAt(ctx, center),
		Rationale:       strings.TrimSpace(region.Rationale),
	}, nil
}

// floodRiskAt maps the FEMA zone at a point to the coarse sub-market risk
// level. No flood source or a lookup failure reads as low risk rather than
// blocking discovery.
func (p *Pipeline) floodRiskAt(ctx context.Context, center geomath.Point) model.FloodRisk {
	if p.flood == nil {
		return model.FloodRiskLow
	}
	zone, err := p.flood.FloodZone(ctx, center.Lng, center.Lat)
	if err != nil {
		zap.L().Warn("sub-market flood lookup failed", zap.Error(err))
		return model.FloodRiskLow
	}
	switch {
	case zone == nil:
		return model.FloodRiskLow
	case strings.HasPrefix(zone.Code, "A") || strings.HasPrefix(zone.Code, "V"):
		return model.FloodRiskHigh
	default:
		return model.FloodRiskModerate
	}
}

// stripCodeFence removes a surrounding markdown code fence, which Claude
// sometimes adds despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
