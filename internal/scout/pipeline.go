package scout

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scoring"
	"github.com/sells-group/sitescout/internal/snapshot"
	"github.com/sells-group/sitescout/pkg/anthropic"
)

const (
	defaultTopN     = 5
	defaultMWTarget = 100.0
	defaultMinAcres = 20.0

	// minZonedCount is the floor below which the zoning filter falls back
	// to the acreage-only parcel set.
	minZonedCount = 3

	// areaBufferMiles widens the shared area substation fetch beyond the
	// per-parcel effective radius so parcels near the bbox edge still see
	// their substations.
	areaBufferMiles = 2.0

	defaultEnrichTimeout = 45 * time.Second
)

// Zoning code prefixes that mean industrial or commercial-capable land.
var defaultZoningPrefixes = []string{"M", "I", "C", "LI", "HI", "PD"}

// ErrInvalidRequest marks a request rejected before any adapter call.
var ErrInvalidRequest = eris.New("scout: invalid request")

// AreaRequest is a Tier-2 area search.
type AreaRequest struct {
	BBox     geomath.BBox
	MWTarget float64
	MinAcres float64
	TopN     int

	// Summarize requests a streamed narrative of the top candidates after
	// full results.
	Summarize bool
}

func (r AreaRequest) withDefaults() AreaRequest {
	if r.MWTarget <= 0 {
		r.MWTarget = defaultMWTarget
	}
	if r.MinAcres <= 0 {
		r.MinAcres = defaultMinAcres
	}
	if r.TopN <= 0 {
		r.TopN = defaultTopN
	}
	return r
}

// Validate rejects malformed requests before any adapter call.
func (r AreaRequest) Validate() error {
	if !r.BBox.Valid() {
		return eris.Wrap(ErrInvalidRequest, fmt.Sprintf("bad bbox %+v", r.BBox))
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClaude sets the LLM client and model used for discovery and
// narrative summaries.
func WithClaude(client anthropic.Client, model string) Option {
	return func(p *Pipeline) {
		p.llm = client
		p.llmModel = model
	}
}

// WithFloodSource sets the flood source used for Tier-1 sub-market risk
// classification.
func WithFloodSource(src snapshot.FloodSource) Option {
	return func(p *Pipeline) { p.flood = src }
}

// WithZoningPrefixes overrides the industrial/commercial zoning whitelist.
func WithZoningPrefixes(prefixes []string) Option {
	return func(p *Pipeline) { p.zoningPrefixes = prefixes }
}

// WithEnrichTimeout bounds each per-candidate full-enrichment call.
func WithEnrichTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.enrichTimeout = d }
}

// Pipeline runs Tier-1 discovery and Tier-2 area searches.
type Pipeline struct {
	parcels     snapshot.ParcelSource
	substations snapshot.SubstationSource
	builder     *snapshot.Builder
	flood       snapshot.FloodSource

	llm      anthropic.Client
	llmModel string

	zoningPrefixes []string
	enrichTimeout  time.Duration
}

// NewPipeline creates a Pipeline over the given geodata sources. The
// builder performs full per-candidate enrichment; the substation source is
// queried once per area search and shared across candidates.
func NewPipeline(parcels snapshot.ParcelSource, substations snapshot.SubstationSource, builder *snapshot.Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		parcels:        parcels,
		substations:    substations,
		builder:        builder,
		zoningPrefixes: defaultZoningPrefixes,
		enrichTimeout:  defaultEnrichTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScoutArea runs the Tier-2 area search, emitting progress events in the
// order status* → quick_results → full_results → summary_chunk* → done,
// with error terminating the stream at any point. The final ranked set is
// also returned for persistence. Adapter failures degrade rather than
// abort: a failed parcel or substation fetch produces an explicit
// "no viable candidates" outcome, and a failed per-candidate enrichment
// degrades that one candidate.
func (p *Pipeline) ScoutArea(ctx context.Context, req AreaRequest, emit EmitFunc) ([]model.RankedCandidate, error) {
	emit = gateEmit(ctx, emit)
	req = req.withDefaults()

	if err := req.Validate(); err != nil {
		p.fail(emit, err)
		return nil, err
	}

	emit(Event{Type: EventStatus, Message: "searching parcels"})
	parcels := p.fetchParcels(ctx, req)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	emit(Event{Type: EventStatus, Message: "fetching area substations"})
	areaSubs := p.fetchAreaSubstations(ctx, req)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cands := make([]model.RankedCandidate, 0, len(parcels))
	for _, parcel := range parcels {
		if parcel.Centroid == nil || !parcel.Centroid.Valid() {
			continue
		}
		qs := scoring.QuickScore(*parcel.Centroid, areaSubs, req.MWTarget)
		cands = append(cands, model.RankedCandidate{
			APN:        parcel.APN,
			Address:    parcel.Address,
			Acres:      parcel.Acres,
			Zoning:     parcel.Zoning,
			Centroid:   parcel.Centroid,
			QuickScore: &qs,
		})
	}
	model.SortAndRank(cands)
	// Enrichment mutates cands in place; the quick payload must stay a
	// stable snapshot for consumers that buffer events.
	emit(Event{Type: EventQuickResults, Candidates: slices.Clone(cands)})

	if len(cands) == 0 {
		emit(Event{Type: EventStatus, Message: "no viable candidates in area"})
		emit(Event{Type: EventFullResults, Candidates: []model.RankedCandidate{}})
		emit(Event{Type: EventDone})
		return cands, nil
	}

	emit(Event{Type: EventStatus, Message: "enriching top candidates"})
	if err := p.enrichTopN(ctx, cands, areaSubs, req); err != nil {
		p.fail(emit, err)
		return nil, err
	}

	model.SortAndRank(cands)
	emit(Event{Type: EventFullResults, Candidates: cands})

	if req.Summarize && p.llm != nil {
		// The narrative is decoration on finished results; its failure is
		// logged but never terminates an otherwise successful run.
		if err := p.streamNarrative(ctx, cands, emit); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("narrative summary failed", zap.Error(err))
		}
	}

	emit(Event{Type: EventDone})
	return cands, nil
}

// fetchParcels applies the zoning whitelist first and falls back to the
// acreage-only set when too few parcels pass. A fetch failure yields an
// empty set, which surfaces downstream as "no viable candidates".
func (p *Pipeline) fetchParcels(ctx context.Context, req AreaRequest) []model.ParcelIdentity {
	zoned, err := p.parcels.ParcelsInBBox(ctx, req.BBox, snapshot.ParcelFilters{
		MinAcres:       req.MinAcres,
		ZoningPrefixes: p.zoningPrefixes,
	})
	if err != nil {
		zap.L().Warn("parcel fetch failed", zap.Error(err))
		return nil
	}
	if len(zoned) >= minZonedCount {
		return zoned
	}

	zap.L().Info("zoning filter too strict, falling back to acreage-only set",
		zap.Int("zoned_count", len(zoned)))
	all, err := p.parcels.ParcelsInBBox(ctx, req.BBox, snapshot.ParcelFilters{
		MinAcres: req.MinAcres,
	})
	if err != nil {
		zap.L().Warn("fallback parcel fetch failed", zap.Error(err))
		return zoned
	}
	if len(all) > len(zoned) {
		return all
	}
	return zoned
}

// fetchAreaSubstations is the single shared substation fetch for the whole
// bbox. Failure degrades to an empty set for the area.
func (p *Pipeline) fetchAreaSubstations(ctx context.Context, req AreaRequest) []model.Substation {
	center := req.BBox.Center()
	radius := req.BBox.DiagonalMiles()/2 + scoring.EffectiveRadius(req.MWTarget) + areaBufferMiles

	subs, err := p.substations.SubstationsNear(ctx, center.Lng, center.Lat, radius)
	if err != nil {
		zap.L().Warn("area substation fetch failed, degrading to empty set", zap.Error(err))
		return nil
	}
	return subs
}

// enrichTopN runs full snapshot+scoring on the leading candidates
// concurrently. Each task writes only its own slice element; the shared
// area substation set is read-only. A failed enrichment degrades that one
// candidate to a substations-only snapshot.
func (p *Pipeline) enrichTopN(ctx context.Context, cands []model.RankedCandidate, areaSubs []model.Substation, req AreaRequest) error {
	n := min(req.TopN, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		c := &cands[i]
		g.Go(func() error {
			snap, err := p.buildWithTimeout(gctx, *c.Centroid, req.MWTarget)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("enrichment failed, degrading candidate",
					zap.String("apn", c.APN),
					zap.Error(err))
				snap = p.builder.BuildDegraded(*c.Centroid, areaSubs, req.MWTarget)
				c.Degraded = true
			}

			res := scoring.ComputeDCScore(snap, req.MWTarget)
			scoring.AttachEstimates(&res, c.Acres)
			c.DCScore = &res
			c.Infrastructure = snap
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) buildWithTimeout(ctx context.Context, centroid geomath.Point, mwTarget float64) (*model.InfrastructureSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.enrichTimeout)
	defer cancel()
	return p.builder.Build(ctx, centroid, mwTarget)
}

// fail emits a terminal error event. Cancellation is silent: a superseded
// session's consumer has already moved on.
func (p *Pipeline) fail(emit EmitFunc, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	emit(Event{Type: EventError, Message: err.Error()})
}
