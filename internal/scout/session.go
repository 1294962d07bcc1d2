package scout

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SessionManager enforces one in-flight pipeline run per session. Beginning
// a new run for a session cancels the previous one; the cancelled run's
// remaining events are dropped by gateEmit.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]*sessionEntry
}

type sessionEntry struct {
	cancel context.CancelFunc
	gen    uint64
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{active: make(map[string]*sessionEntry)}
}

// Begin starts a new run for sessionID, cancelling any previous run for the
// same session. The returned context is cancelled either by the returned
// cancel func or by a later Begin for the same session.
func (m *SessionManager) Begin(parent context.Context, sessionID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	if prev, ok := m.active[sessionID]; ok {
		zap.L().Debug("superseding session run", zap.String("session_id", sessionID))
		prev.cancel()
	}
	entry := &sessionEntry{cancel: cancel}
	if prev := m.active[sessionID]; prev != nil {
		entry.gen = prev.gen + 1
	}
	m.active[sessionID] = entry
	gen := entry.gen
	m.mu.Unlock()

	release := func() {
		cancel()
		m.mu.Lock()
		// Only the run that owns the slot may clear it; a superseded run's
		// late release must not evict its successor.
		if cur, ok := m.active[sessionID]; ok && cur.gen == gen {
			delete(m.active, sessionID)
		}
		m.mu.Unlock()
	}
	return ctx, release
}

// Cancel aborts the in-flight run for sessionID, if any.
func (m *SessionManager) Cancel(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.active[sessionID]; ok {
		entry.cancel()
		delete(m.active, sessionID)
	}
}

// ActiveCount returns the number of sessions with an in-flight run.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
