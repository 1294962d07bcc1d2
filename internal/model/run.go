package model

import "time"

// RunStatus is the lifecycle state of a persisted scout run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind distinguishes the two pipeline entry points.
type RunKind string

const (
	RunKindArea     RunKind = "area"
	RunKindDiscover RunKind = "discover"
)

// ScoutRun is one persisted pipeline invocation: the query that started it
// and, once finished, its ranked results.
type ScoutRun struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      RunKind   `json:"kind"`
	Query     string    `json:"query"`
	Status    RunStatus `json:"status"`

	Candidates []RankedCandidate    `json:"candidates,omitempty"`
	SubMarkets []SubMarketCandidate `json:"sub_markets,omitempty"`
	Error      string               `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
