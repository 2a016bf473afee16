// Package syncer implements the outbound half of the sync engine: a
// best-effort, retrying, coalescing push of local mutations to the remote
// store. Callers are never told about remote failures; the local write has
// already succeeded and remains the authoritative state for the UI.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-organizer/internal/adapter"
	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/models"
)

// Config tunes the retry and coalescing behaviour.
type Config struct {
	// MaxAttempts bounds delivery attempts per operation, first try included.
	MaxAttempts int
	// BaseDelay is the initial backoff delay, doubling per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Debounce delays the first send so rapid successive writes to the same
	// record collapse into one request. Zero disables the delay.
	Debounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	return c
}

type opKind int

const (
	opPut opKind = iota
	opDelete
	opSettings
)

// operation is one pending outbound write, keyed by its dedupe key. A newly
// scheduled operation with the same key replaces the pending payload; the
// latest payload wins.
type operation struct {
	models.SyncOperation

	kind   opKind
	userID string
	// ctx is the coordinator context the operation was spawned under. A
	// cancelled ctx marks the operation as dying; schedule must not
	// coalesce into it.
	ctx context.Context
	// dirty is set when the payload was replaced while a delivery pass was
	// already running; the running goroutine sends again instead of exiting.
	dirty bool
}

// Coordinator owns the pending operation set and the delivery goroutines.
// Construct one per process and share it across repositories.
type Coordinator struct {
	remote adapter.RemoteStore
	logger *logger.Logger
	cfg    Config

	mu      sync.Mutex
	pending map[string]*operation
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

func New(remote adapter.RemoteStore, cfg Config, log *logger.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		remote:  remote,
		logger:  log,
		cfg:     cfg.withDefaults(),
		pending: make(map[string]*operation),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Push schedules a detached upsert of one record. Returns immediately; the
// caller's local write is already durable and is never rolled back on
// remote failure.
func (c *Coordinator) Push(userID, collection, id string, payload json.RawMessage) {
	c.schedule(&operation{
		SyncOperation: models.SyncOperation{
			Collection: collection,
			ID:         id,
			Payload:    payload,
			DedupeKey:  "push:" + collection + ":" + id,
		},
		kind:   opPut,
		userID: userID,
	})
}

// PushDelete schedules a detached remote delete of one record.
func (c *Coordinator) PushDelete(userID, collection, id string) {
	c.schedule(&operation{
		SyncOperation: models.SyncOperation{
			Collection: collection,
			ID:         id,
			DedupeKey:  "delete:" + collection + ":" + id,
		},
		kind:   opDelete,
		userID: userID,
	})
}

// PushSettings schedules a detached wholesale replace of the user's
// settings blob on the user document root.
func (c *Coordinator) PushSettings(userID string, settings json.RawMessage) {
	c.schedule(&operation{
		SyncOperation: models.SyncOperation{
			Collection: "settings",
			ID:         userID,
			Payload:    settings,
			DedupeKey:  "settings:" + userID,
		},
		kind:   opSettings,
		userID: userID,
	})
}

func (c *Coordinator) schedule(op *operation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if existing, ok := c.pending[op.DedupeKey]; ok && existing.ctx.Err() == nil {
		// Coalesce: the pending operation absorbs the new payload instead
		// of queueing a second request. An operation whose context was
		// already cancelled is about to exit without delivering, so it is
		// replaced with a fresh one instead.
		existing.Payload = op.Payload
		existing.dirty = true
		return
	}

	op.ctx = c.ctx
	c.pending[op.DedupeKey] = op
	c.wg.Add(1)
	go c.run(op.ctx, op)
}

func (c *Coordinator) run(ctx context.Context, op *operation) {
	defer c.wg.Done()

	if c.cfg.Debounce > 0 {
		select {
		case <-ctx.Done():
			c.remove(op)
			return
		case <-time.After(c.cfg.Debounce):
		}
	}

	for {
		c.mu.Lock()
		op.dirty = false
		c.mu.Unlock()

		err := c.deliver(ctx, op)

		c.mu.Lock()
		if op.dirty && ctx.Err() == nil {
			// Payload replaced mid-flight; go around with the new one.
			c.mu.Unlock()
			continue
		}
		if c.pending[op.DedupeKey] == op {
			// A successor scheduled after cancellation may already own the
			// key; only the entry's own goroutine may remove it.
			delete(c.pending, op.DedupeKey)
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			// Exhausted or rejected: drop silently from the caller's point
			// of view. The local store already holds the user's intent.
			c.logger.Err(err).
				Str("func", "Coordinator.run").
				Str("dedupe_key", op.DedupeKey).
				Int("attempts", op.Attempt).
				Msg("push dropped after retry exhaustion")
		}
		return
	}
}

// deliver sends one operation, retrying transient failures with capped
// exponential backoff up to the attempt ceiling. The payload is re-read
// under lock on every attempt so retries carry the latest coalesced value.
func (c *Coordinator) deliver(ctx context.Context, op *operation) error {
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		c.mu.Lock()
		payload := op.Payload
		op.Attempt++
		attempt := op.Attempt
		c.mu.Unlock()

		var err error
		switch op.kind {
		case opDelete:
			err = c.remote.DeleteDocument(ctx, op.userID, op.Collection, op.ID)
		case opSettings:
			err = c.remote.PutSettings(ctx, op.userID, payload)
		default:
			err = c.remote.PutDocument(ctx, op.userID, op.Collection, op.ID, payload)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, adapter.ErrRemoteUnavailable) {
			c.logger.Warn().
				Str("func", "Coordinator.deliver").
				Str("dedupe_key", op.DedupeKey).
				Int("attempt", attempt).
				Err(err).
				Msg("transient push failure, will retry")
			return retry.RetryableError(err)
		}
		return err
	})
}

// PushBatch delivers a whole collection in one request, blocking the
// caller. Used by the migration path. A failure mid-batch is logged
// per-record and not rolled back; only transport-level exhaustion is
// returned.
func (c *Coordinator) PushBatch(ctx context.Context, userID, collection string, docs map[string]json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}

	var failed map[string]string
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		f, err := c.remote.PutBatch(ctx, userID, collection, docs)
		if err != nil {
			if errors.Is(err, adapter.ErrRemoteUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		failed = f
		return nil
	})
	if err != nil {
		return fmt.Errorf("push batch %s: %w", collection, err)
	}

	for id, reason := range failed {
		c.logger.Error().
			Str("func", "Coordinator.PushBatch").
			Str("collection", collection).
			Str("id", id).
			Str("reason", reason).
			Msg("record rejected in batch push")
	}

	return nil
}

func (c *Coordinator) backoff() retry.Backoff {
	b := retry.NewExponential(c.cfg.BaseDelay)
	b = retry.WithCappedDuration(c.cfg.MaxDelay, b)
	return retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), b)
}

func (c *Coordinator) remove(op *operation) {
	c.mu.Lock()
	if c.pending[op.DedupeKey] == op {
		delete(c.pending, op.DedupeKey)
	}
	c.mu.Unlock()
}

// Flush blocks until every currently scheduled operation has finished
// (delivered or dropped). A shutdown and test aid.
func (c *Coordinator) Flush() {
	c.wg.Wait()
}

// CancelPending aborts all pending operations and their backoff timers,
// e.g. on sign-out, while leaving the coordinator usable for the next
// session.
func (c *Coordinator) CancelPending() {
	c.mu.Lock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()
	c.wg.Wait()
}

// Close aborts all pending operations and rejects new ones.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}
