package scout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sitescout/internal/model"
)

const extractionFixture = "```json\n" + `[
	{
		"id": "midlothian",
		"name": "Midlothian Corridor",
		"center": {"lng": -97.05, "lat": 32.50},
		"bbox": {"west": -97.1, "south": 32.45, "east": -97.0, "north": 32.55},
		"rationale": "Heavy industrial zoning along a 345 kV corridor."
	},
	{
		"id": "bad-bbox",
		"name": "Broken Region",
		"center": {"lng": -96.0, "lat": 33.0},
		"bbox": {"west": -95.0, "south": 33.5, "east": -96.0, "north": 33.0},
		"rationale": "Reversed bbox should be dropped."
	},
	{
		"id": "remote",
		"name": "Remote Basin",
		"center": {"lng": -103.0, "lat": 31.50},
		"bbox": {"west": -103.05, "south": 31.45, "east": -102.95, "north": 31.55},
		"rationale": "Cheap land, thin grid."
	}
]` + "\n```"

func TestDiscoverRanksSubMarkets(t *testing.T) {
	claude := &mockClaude{text: extractionFixture}
	// Substations cluster near the Midlothian center; the remote basin sees
	// the same mock set but from 300+ miles away, outside any radius.
	subs := &mockSubstations{subs: testAreaSubs()}
	flood := &mockFlood{zone: nil}

	p := NewPipeline(&mockParcels{}, subs, nil,
		WithClaude(claude, "claude-haiku-4-5-20251001"),
		WithFloodSource(flood),
	)

	var events []Event
	markets, err := p.Discover(context.Background(), DiscoverRequest{Query: "100MW hyperscale campus near DFW"}, collectEvents(&events))
	require.NoError(t, err)

	// The reversed bbox is dropped; two regions survive.
	require.Len(t, markets, 2)
	assert.Equal(t, "Midlothian Corridor", markets[0].Name)
	assert.Greater(t, markets[0].QuickScore, markets[1].QuickScore)
	assert.Equal(t, 2, markets[0].SubstationCount)
	assert.InDelta(t, 345, markets[0].MaxVoltageKV, 1e-9)
	assert.Equal(t, model.FloodRiskLow, markets[0].FloodRisk)

	assert.Equal(t, []EventType{EventSubMarkets, EventDone}, requiredOrder(events))
}

func TestDiscoverFloodRiskLevels(t *testing.T) {
	tests := []struct {
		name string
		zone *model.FloodZone
		want model.FloodRisk
	}{
		{"no zone", nil, model.FloodRiskLow},
		{"zone X", &model.FloodZone{Code: "X"}, model.FloodRiskModerate},
		{"zone AE", &model.FloodZone{Code: "AE"}, model.FloodRiskHigh},
		{"zone VE", &model.FloodZone{Code: "VE"}, model.FloodRiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(&mockParcels{}, &mockSubstations{}, nil,
				WithFloodSource(&mockFlood{zone: tt.zone}))
			got := p.floodRiskAt(context.Background(), testAreaSubs()[0].Coordinates)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverEmptyQuery(t *testing.T) {
	p := NewPipeline(&mockParcels{}, &mockSubstations{}, nil,
		WithClaude(&mockClaude{}, "m"))

	var events []Event
	_, err := p.Discover(context.Background(), DiscoverRequest{Query: "   "}, collectEvents(&events))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestDiscoverWithoutLLM(t *testing.T) {
	p := NewPipeline(&mockParcels{}, &mockSubstations{}, nil)
	_, err := p.Discover(context.Background(), DiscoverRequest{Query: "anything"}, nil)
	require.Error(t, err)
}

func TestDiscoverMalformedExtraction(t *testing.T) {
	p := NewPipeline(&mockParcels{}, &mockSubstations{}, nil,
		WithClaude(&mockClaude{text: "I think the best markets are..."}, "m"))

	var events []Event
	_, err := p.Discover(context.Background(), DiscoverRequest{Query: "campus"}, collectEvents(&events))
	require.Error(t, err)
	assert.Equal(t, EventError, events[len(events)-1].Type)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[1]`, stripCodeFence("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("```\n[1]\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("[1]"))
}
