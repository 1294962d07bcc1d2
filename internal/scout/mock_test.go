package scout

import (
	"context"
	"sync"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/snapshot"
	"github.com/sells-group/sitescout/pkg/anthropic"
)

type mockParcels struct {
	mu       sync.Mutex
	calls    []snapshot.ParcelFilters
	parcels  []model.ParcelIdentity
	fallback []model.ParcelIdentity
	err      error
}

func (m *mockParcels) ParcelsInBBox(_ context.Context, _ geomath.BBox, filters snapshot.ParcelFilters) ([]model.ParcelIdentity, error) {
	m.mu.Lock()
	m.calls = append(m.calls, filters)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(filters.ZoningPrefixes) == 0 && m.fallback != nil {
		return m.fallback, nil
	}
	return m.parcels, nil
}

func (m *mockParcels) ParcelByAPN(_ context.Context, apn string) (*model.ParcelIdentity, error) {
	for i := range m.parcels {
		if m.parcels[i].APN == apn {
			return &m.parcels[i], nil
		}
	}
	return nil, m.err
}

// mockSubstations serves the shared area fetch and, separately, the
// builder's per-candidate fetch. failNear makes per-candidate calls fail
// for centroids close to a specific point.
type mockSubstations struct {
	subs     []model.Substation
	err      error
	failNear *geomath.Point
	failErr  error
}

func (m *mockSubstations) SubstationsNear(_ context.Context, lng, lat, _ float64) ([]model.Substation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.failNear != nil {
		d := geomath.Distance(*m.failNear, geomath.Point{Lng: lng, Lat: lat})
		if d < 0.5 {
			return nil, m.failErr
		}
	}
	return m.subs, nil
}

type mockFlood struct {
	zone *model.FloodZone
	err  error
}

func (m *mockFlood) FloodZone(_ context.Context, _, _ float64) (*model.FloodZone, error) {
	return m.zone, m.err
}

// mockClaude returns a canned response and replays chunks for streaming.
type mockClaude struct {
	text   string
	chunks []string
	err    error
}

func (m *mockClaude) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.text}},
	}, nil
}

func (m *mockClaude) StreamMessage(_ context.Context, _ anthropic.MessageRequest, onText func(string)) (*anthropic.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	var full string
	for _, c := range m.chunks {
		onText(c)
		full += c
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: full}},
	}, nil
}

// collectEvents returns an EmitFunc that appends into the given slice.
func collectEvents(events *[]Event) EmitFunc {
	var mu sync.Mutex
	return func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, ev)
	}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// requiredOrder filters the event sequence down to the non-status events,
// which carry the ordering guarantee.
func requiredOrder(events []Event) []EventType {
	var out []EventType
	for _, ev := range events {
		if ev.Type == EventStatus {
			continue
		}
		out = append(out, ev.Type)
	}
	return out
}
