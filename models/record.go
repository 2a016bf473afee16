package models

import "time"

// Meta carries the fields shared by every record that lives in a local
// collection. Embed it in a domain type to get the id and the bookkeeping
// timestamps; the repository layer fills all three on create.
type Meta struct {
	// ID uniquely identifies the record within its collection. It is
	// assigned once on create and never changes afterwards.
	ID string `json:"id"`

	// CreatedAt is set when the record is first persisted locally.
	CreatedAt time.Time `json:"createdAt,omitzero"`

	// UpdatedAt is bumped on every local mutation and mirrors the implicit
	// updatedAt the remote store attaches once the record has been pushed.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// EntityID returns the record id.
func (m Meta) EntityID() string { return m.ID }
