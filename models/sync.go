package models

import "encoding/json"

// SyncOperation describes one pending outbound write. Operations are keyed
// by DedupeKey: scheduling a new operation with the same key replaces the
// pending payload instead of queueing a second request.
type SyncOperation struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempt    int             `json:"attempt"`
	DedupeKey  string          `json:"dedupeKey"`
}
