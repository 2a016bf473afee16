// Package subscription mirrors remote state into the local store in real
// time. One listener runs per (collection, user); every remote change
// delivers the full collection snapshot, which replaces the local
// collection wholesale. A locally-created record that has not been pushed
// yet is therefore lost when a snapshot lands first: last write wins, and
// there is no version check. This mirrors the shipped behaviour; a
// per-record updatedAt comparison would be the hardening if that trade-off
// is revisited.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-organizer/internal/adapter"
	"github.com/MKhiriev/go-organizer/internal/logger"
)

// SnapshotStore is the slice of the local store the manager writes to.
type SnapshotStore interface {
	ReplaceAll(ctx context.Context, collection string, records map[string]json.RawMessage) error
}

// OnUpdate is invoked after every applied snapshot with the raw records.
type OnUpdate func(records []json.RawMessage)

type handleKey struct {
	collection string
	userID     string
}

// Handle ties a (collection, user) pair to its running listener. Exactly
// one handle exists per pair; re-subscribing replaces and cancels the
// previous one.
type Handle struct {
	Collection string
	UserID     string

	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every open subscription handle. Construct one at startup
// and inject it wherever needed; tests build a fresh instance each.
type Manager struct {
	source adapter.SnapshotSource
	store  SnapshotStore
	logger *logger.Logger

	mu      sync.Mutex
	handles map[handleKey]*Handle
}

func NewManager(source adapter.SnapshotSource, store SnapshotStore, log *logger.Logger) *Manager {
	return &Manager{
		source:  source,
		store:   store,
		logger:  log,
		handles: make(map[handleKey]*Handle),
	}
}

// Subscribe opens a listener for (collection, userID). Each received
// snapshot replaces the local collection and is then handed to onUpdate.
// If a handle already exists for the pair it is replaced and stopped, so
// the prior listener never leaks.
func (m *Manager) Subscribe(ctx context.Context, collection, userID string, onUpdate OnUpdate) (*Handle, error) {
	key := handleKey{collection: collection, userID: userID}

	listenCtx, cancel := context.WithCancel(ctx)
	snapshots, err := m.source.Listen(listenCtx, userID, collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open listener for %s: %w", collection, err)
	}

	h := &Handle{
		Collection: collection,
		UserID:     userID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	// The swap is a single critical section. Racing Subscribe calls for
	// the same key each displace exactly one handle and stop it, so the
	// map always ends up holding the one surviving listener.
	m.mu.Lock()
	prev := m.handles[key]
	m.handles[key] = h
	m.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	m.logger.Info().
		Str("func", "Manager.Subscribe").
		Str("collection", collection).
		Str("user_id", userID).
		Msg("remote listener opened")

	go m.consume(listenCtx, h, snapshots, onUpdate)

	return h, nil
}

func (m *Manager) consume(ctx context.Context, h *Handle, snapshots <-chan []json.RawMessage, onUpdate OnUpdate) {
	defer close(h.done)

	for snapshot := range snapshots {
		if err := m.apply(ctx, h.Collection, snapshot); err != nil {
			// Listener errors do not unsubscribe; the next snapshot gets a
			// fresh chance.
			m.logger.Err(err).
				Str("func", "Manager.consume").
				Str("collection", h.Collection).
				Msg("failed to apply remote snapshot")
			continue
		}
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	}
}

// apply writes a full remote snapshot into the local store, replacing the
// collection wholesale. Records without an id are skipped with a warning.
func (m *Manager) apply(ctx context.Context, collection string, snapshot []json.RawMessage) error {
	records := make(map[string]json.RawMessage, len(snapshot))
	for _, raw := range snapshot {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.ID == "" {
			m.logger.Warn().
				Str("func", "Manager.apply").
				Str("collection", collection).
				Msg("skipping snapshot record without id")
			continue
		}
		records[probe.ID] = raw
	}

	if err := m.store.ReplaceAll(ctx, collection, records); err != nil {
		return fmt.Errorf("replace %s from snapshot: %w", collection, err)
	}

	m.logger.Debug().
		Str("func", "Manager.apply").
		Str("collection", collection).
		Int("records", len(records)).
		Msg("remote snapshot applied")
	return nil
}

// UnsubscribeAll tears down every open handle. Idempotent and safe to call
// when nothing is subscribed.
func (m *Manager) UnsubscribeAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.handles = make(map[handleKey]*Handle)
	m.mu.Unlock()

	for _, h := range handles {
		h.stop()
	}
}

// Active reports how many handles are currently open.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

func (h *Handle) stop() {
	h.cancel()
	<-h.done
}
