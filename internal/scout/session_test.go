package scout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerSupersedes(t *testing.T) {
	m := NewSessionManager()

	ctx1, release1 := m.Begin(context.Background(), "s1")
	defer release1()

	select {
	case <-ctx1.Done():
		t.Fatal("first run cancelled prematurely")
	default:
	}

	ctx2, release2 := m.Begin(context.Background(), "s1")
	defer release2()

	// The second Begin for the same session cancels the first run.
	select {
	case <-ctx1.Done():
	default:
		t.Fatal("first run not cancelled by supersession")
	}
	require.NoError(t, ctx2.Err())
}

func TestSessionManagerIndependentSessions(t *testing.T) {
	m := NewSessionManager()

	ctx1, release1 := m.Begin(context.Background(), "s1")
	defer release1()
	_, release2 := m.Begin(context.Background(), "s2")
	defer release2()

	assert.NoError(t, ctx1.Err())
	assert.Equal(t, 2, m.ActiveCount())
}

func TestSessionManagerLateReleaseKeepsSuccessor(t *testing.T) {
	m := NewSessionManager()

	_, release1 := m.Begin(context.Background(), "s1")
	ctx2, release2 := m.Begin(context.Background(), "s1")
	defer release2()

	// The superseded run finishing late must not evict the active run.
	release1()
	assert.Equal(t, 1, m.ActiveCount())
	assert.NoError(t, ctx2.Err())
}

func TestSessionManagerCancel(t *testing.T) {
	m := NewSessionManager()

	ctx, release := m.Begin(context.Background(), "s1")
	defer release()

	m.Cancel("s1")
	assert.Error(t, ctx.Err())
	assert.Equal(t, 0, m.ActiveCount())
}

func TestGateEmitDropsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var events []Event
	emit := gateEmit(ctx, collectEvents(&events))

	emit(Event{Type: EventStatus, Message: "before"})
	cancel()
	emit(Event{Type: EventDone})

	require.Len(t, events, 1)
	assert.Equal(t, EventStatus, events[0].Type)
}
