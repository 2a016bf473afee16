package models

import "time"

// Event kinds written to the local event log on domain-significant
// transitions. The log is local-only and never pushed.
const (
	EventItemCompleted    = "item_completed"
	EventSessionCompleted = "session_completed"
)

// Event is a correlation record for a domain transition. Writing one is
// fire-and-forget; a failed event write never fails the primary operation.
type Event struct {
	Meta

	Kind  string    `json:"kind"`
	RefID string    `json:"refId"`
	At    time.Time `json:"at"`
}
