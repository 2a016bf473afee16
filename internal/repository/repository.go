// Package repository implements the typed CRUD layer between the UI and
// the local store. Every mutation is written locally first and returns
// synchronously; a detached push to the remote store is scheduled
// afterwards, if a user session exists. The remote path can fail without
// the caller ever noticing.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/session"
	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

// LocalStore is the slice of the local store the repositories need.
type LocalStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Put(ctx context.Context, collection, id string, payload json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
}

// Pusher schedules detached remote writes. Implemented by the sync
// coordinator; tests substitute spies.
type Pusher interface {
	Push(userID, collection, id string, payload json.RawMessage)
	PushDelete(userID, collection, id string)
}

// Deps groups the collaborators shared by every repository instance.
type Deps struct {
	Local   LocalStore
	Pusher  Pusher
	Session session.Source
	Logger  *logger.Logger
}

// Options configures one typed repository.
type Options[T any] struct {
	// Collection names the local store partition.
	Collection string
	// Seed is the compiled-in default set written on the first GetAll
	// against an empty collection. Nil means no seeding.
	Seed []T
	// Less orders GetAll results, typically most recent first.
	Less func(a, b T) bool
	// Normalize canonicalises a record before validation and persistence
	// (e.g. uppercasing a ticker symbol).
	Normalize func(T) T
	// Validate rejects invalid records before they are persisted.
	Validate func(T) error
	// ResetOnDuplicate strips completion or session state from a copy
	// before it is re-added under a new id.
	ResetOnDuplicate func(T) T
	// Transition reports a domain-significant transition between the
	// previous record state (nil on create) and the next one. When ok, an
	// event-log entry of the returned kind is written fire-and-forget.
	Transition func(prev *T, next T) (kind string, ok bool)
}

// Repository is the generic per-type repository. Instantiate one per
// domain type via the constructors in catalog.go.
type Repository[T any] struct {
	local   LocalStore
	pusher  Pusher
	session session.Source
	logger  *logger.Logger
	opts    Options[T]
}

func New[T any](d Deps, opts Options[T]) *Repository[T] {
	return &Repository[T]{
		local:   d.Local,
		pusher:  d.Pusher,
		session: d.Session,
		logger:  d.Logger,
		opts:    opts,
	}
}

// GetAll returns every record in the collection, sorted by the domain
// comparator. On the first call against an empty collection the
// compiled-in default set is persisted and returned; seeding never runs
// again once the collection holds anything.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	payloads, err := r.local.GetAll(ctx, r.opts.Collection)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", r.opts.Collection, err)
	}

	if len(payloads) == 0 && len(r.opts.Seed) > 0 {
		return r.seed(ctx)
	}

	items := make([]T, 0, len(payloads))
	for _, payload := range payloads {
		var item T
		if err = json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", r.opts.Collection, err)
		}
		items = append(items, item)
	}

	r.sort(items)
	return items, nil
}

func (r *Repository[T]) seed(ctx context.Context) ([]T, error) {
	items := make([]T, 0, len(r.opts.Seed))
	for _, item := range r.opts.Seed {
		stamped, raw, err := r.stamp(item, newID(), time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", r.opts.Collection, err)
		}
		if err = r.local.Put(ctx, r.opts.Collection, idOf(raw), raw); err != nil {
			return nil, fmt.Errorf("seed %s: %w", r.opts.Collection, err)
		}
		items = append(items, stamped)
	}

	r.logger.Info().
		Str("func", "Repository.seed").
		Str("collection", r.opts.Collection).
		Int("count", len(items)).
		Msg("seeded empty collection with defaults")

	r.sort(items)
	return items, nil
}

// Get returns one record by id, or [ErrNotFound].
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var item T

	payload, err := r.local.Get(ctx, r.opts.Collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return item, fmt.Errorf("%w: %s/%s", ErrNotFound, r.opts.Collection, id)
	}
	if err != nil {
		return item, fmt.Errorf("get %s/%s: %w", r.opts.Collection, id, err)
	}

	if err = json.Unmarshal(payload, &item); err != nil {
		return item, fmt.Errorf("decode %s record: %w", r.opts.Collection, err)
	}
	return item, nil
}

// Add validates the record, assigns id and timestamps, persists it and
// schedules a push if a session exists. The stored record is returned.
func (r *Repository[T]) Add(ctx context.Context, item T) (T, error) {
	var zero T

	if r.opts.Normalize != nil {
		item = r.opts.Normalize(item)
	}
	if r.opts.Validate != nil {
		if err := r.opts.Validate(item); err != nil {
			return zero, err
		}
	}

	stamped, raw, err := r.stamp(item, newID(), time.Now().UTC())
	if err != nil {
		return zero, fmt.Errorf("encode %s record: %w", r.opts.Collection, err)
	}

	id := idOf(raw)
	if err = r.local.Put(ctx, r.opts.Collection, id, raw); err != nil {
		return zero, fmt.Errorf("add %s record: %w", r.opts.Collection, err)
	}

	r.emitTransition(ctx, nil, stamped, id)
	r.schedulePush(id, raw)

	return stamped, nil
}

// Update shallow-merges patch over the existing record, bumps updatedAt,
// persists and schedules a push. The record id is immutable; an "id" key in
// patch is ignored. Returns [ErrNotFound] if the id is absent.
func (r *Repository[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var zero T

	prev, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	cur, err := encode(prev)
	if err != nil {
		return zero, fmt.Errorf("encode %s record: %w", r.opts.Collection, err)
	}

	for k, v := range patch {
		if k == "id" || k == "createdAt" {
			continue
		}
		cur[k] = v
	}
	cur["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	raw, err := json.Marshal(cur)
	if err != nil {
		return zero, fmt.Errorf("encode %s record: %w", r.opts.Collection, err)
	}

	var next T
	if err = json.Unmarshal(raw, &next); err != nil {
		return zero, fmt.Errorf("%w: patch does not fit %s record: %w", ErrValidation, r.opts.Collection, err)
	}
	if r.opts.Normalize != nil {
		next = r.opts.Normalize(next)
		if raw, err = json.Marshal(next); err != nil {
			return zero, fmt.Errorf("encode %s record: %w", r.opts.Collection, err)
		}
	}
	if r.opts.Validate != nil {
		if err = r.opts.Validate(next); err != nil {
			return zero, err
		}
	}

	if err = r.local.Put(ctx, r.opts.Collection, id, raw); err != nil {
		return zero, fmt.Errorf("update %s record: %w", r.opts.Collection, err)
	}

	r.emitTransition(ctx, &prev, next, id)
	r.schedulePush(id, raw)

	return next, nil
}

// Remove deletes the record locally and schedules a remote delete.
// Removing a missing id is not an error.
func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	if err := r.local.Delete(ctx, r.opts.Collection, id); err != nil {
		return fmt.Errorf("remove %s record: %w", r.opts.Collection, err)
	}

	if sess, ok := r.session.Current(); ok {
		r.pusher.PushDelete(sess.UserID, r.opts.Collection, id)
	}
	return nil
}

// Duplicate deep-copies an existing record under a new id, stripping
// completion or session state via the configured reset hook. Local-only; no
// special remote semantics beyond being a normal add.
func (r *Repository[T]) Duplicate(ctx context.Context, id string) (T, error) {
	var zero T

	item, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	if r.opts.ResetOnDuplicate != nil {
		item = r.opts.ResetOnDuplicate(item)
	}

	return r.Add(ctx, item)
}

// schedulePush asks the coordinator for a detached push when a user session
// exists. The local write above is already visible; ordering is guaranteed
// by doing this last.
func (r *Repository[T]) schedulePush(id string, raw json.RawMessage) {
	if sess, ok := r.session.Current(); ok {
		r.pusher.Push(sess.UserID, r.opts.Collection, id, raw)
	}
}

// emitTransition writes an event-log entry for a domain-significant
// transition. Fire-and-forget: failures are logged and never surface to
// the primary operation.
func (r *Repository[T]) emitTransition(ctx context.Context, prev *T, next T, refID string) {
	if r.opts.Transition == nil {
		return
	}
	kind, ok := r.opts.Transition(prev, next)
	if !ok {
		return
	}

	now := time.Now().UTC()
	event := models.Event{
		Meta:  models.Meta{ID: newID(), CreatedAt: now, UpdatedAt: now},
		Kind:  kind,
		RefID: refID,
		At:    now,
	}

	raw, err := json.Marshal(event)
	if err == nil {
		err = r.local.Put(ctx, store.CollectionEventLog, event.ID, raw)
	}
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("func", "Repository.emitTransition").
			Str("kind", kind).
			Str("ref_id", refID).
			Msg("failed to write event-log entry")
		return
	}

	r.logger.Debug().
		Str("func", "Repository.emitTransition").
		Str("kind", kind).
		Str("ref_id", refID).
		Msg("domain transition recorded")
}

func (r *Repository[T]) sort(items []T) {
	if r.opts.Less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return r.opts.Less(items[i], items[j]) })
}

// stamp encodes the record, overwrites id and both timestamps, and returns
// the typed record together with its stored payload.
func (r *Repository[T]) stamp(item T, id string, now time.Time) (T, json.RawMessage, error) {
	var zero T

	m, err := encode(item)
	if err != nil {
		return zero, nil, err
	}
	m["id"] = id
	m["createdAt"] = now.Format(time.RFC3339Nano)
	m["updatedAt"] = now.Format(time.RFC3339Nano)

	raw, err := json.Marshal(m)
	if err != nil {
		return zero, nil, err
	}

	var stamped T
	if err = json.Unmarshal(raw, &stamped); err != nil {
		return zero, nil, err
	}
	return stamped, raw, nil
}

func encode[T any](item T) (map[string]any, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func idOf(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.ID
}

// newID returns a UUIDv7 (time-ordered) id, falling back to v4 if the
// clock-based generator fails.
func newID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
