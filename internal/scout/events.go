// Package scout orchestrates the two-tier candidate pipeline: Tier-1
// sub-market discovery over a free-text brief, and Tier-2 area search that
// quick-scores every parcel in a bbox and fully enriches only the top N.
// Progress is surfaced as an ordered event stream so the CLI, the SSE
// server, and tests all consume the same sequence.
package scout

import (
	"context"

	"github.com/sells-group/sitescout/internal/model"
)

// EventType identifies a pipeline progress event.
type EventType string

const (
	// EventStatus carries a human-readable progress message.
	EventStatus EventType = "status"

	// EventQuickResults carries the full candidate set ranked by quick
	// score, before any enrichment.
	EventQuickResults EventType = "quick_results"

	// EventFullResults carries the merged result set after top-N
	// enrichment and re-ranking.
	EventFullResults EventType = "full_results"

	// EventSubMarkets carries ranked Tier-1 sub-market candidates.
	EventSubMarkets EventType = "sub_markets"

	// EventSummaryChunk carries one streamed token of the narrative
	// summary.
	EventSummaryChunk EventType = "summary_chunk"

	// EventError terminates the stream with a message.
	EventError EventType = "error"

	// EventDone terminates the stream successfully.
	EventDone EventType = "done"
)

// Event is a single progress event. Exactly one payload field is set,
// matching the Type.
type Event struct {
	Type       EventType                  `json:"type"`
	Message    string                     `json:"message,omitempty"`
	Candidates []model.RankedCandidate    `json:"candidates,omitempty"`
	SubMarkets []model.SubMarketCandidate `json:"sub_markets,omitempty"`
	Chunk      string                     `json:"chunk,omitempty"`
}

// EmitFunc receives pipeline events in order. Implementations must not
// block indefinitely; the pipeline calls it synchronously.
type EmitFunc func(Event)

// gateEmit wraps emit so that nothing is delivered once ctx is cancelled.
// A superseded session's late events must never reach its consumer.
func gateEmit(ctx context.Context, emit EmitFunc) EmitFunc {
	if emit == nil {
		return func(Event) {}
	}
	return func(ev Event) {
		if ctx.Err() != nil {
			return
		}
		emit(ev)
	}
}
