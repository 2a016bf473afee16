package adapter

import (
	"context"
	"encoding/json"
)

// RemoteStore is the outbound interface to the remote document store. One
// document per record lives under users/{userId}/{collection}/{id}; the
// user's settings blob lives on the users/{userId} document root.
type RemoteStore interface {
	// PutDocument creates or overwrites one document. Upsert by id.
	PutDocument(ctx context.Context, userID, collection, id string, payload json.RawMessage) error

	// DeleteDocument removes one document. Deleting a missing document is
	// not an error.
	DeleteDocument(ctx context.Context, userID, collection, id string) error

	// PutBatch upserts many documents in one request. Per-document failures
	// are reported in the returned map (id to reason) without failing the
	// rest of the batch; the error covers transport-level failure only.
	PutBatch(ctx context.Context, userID, collection string, docs map[string]json.RawMessage) (map[string]string, error)

	// PutSettings replaces the settings field of the user document root
	// wholesale.
	PutSettings(ctx context.Context, userID string, settings json.RawMessage) error
}

// SnapshotSource opens real-time listeners. Every remote change delivers
// the full current snapshot of the collection, not a diff.
type SnapshotSource interface {
	// Listen streams snapshots for (userID, collection) until ctx is
	// cancelled, after which the channel is closed. Listener errors are
	// retried internally and never close the channel on their own.
	Listen(ctx context.Context, userID, collection string) (<-chan []json.RawMessage, error)
}
