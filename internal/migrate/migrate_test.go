package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/store"
)

// fakeDumpStore serves canned local collections.
type fakeDumpStore struct {
	collections map[string]map[string]json.RawMessage
}

func (f *fakeDumpStore) Dump(_ context.Context, collection string) (map[string]json.RawMessage, error) {
	return f.collections[collection], nil
}

func (f *fakeDumpStore) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	payload, ok := f.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return payload, nil
}

// fakeBatchPusher applies batches into a remote document map, mimicking the
// remote store's upsert-by-id semantics.
type fakeBatchPusher struct {
	mu       sync.Mutex
	remote   map[string]map[string]json.RawMessage
	settings []json.RawMessage
	// failCollections makes PushBatch fail for the named collections.
	failCollections map[string]bool
	calls           int
}

func newFakeBatchPusher() *fakeBatchPusher {
	return &fakeBatchPusher{remote: make(map[string]map[string]json.RawMessage)}
}

func (f *fakeBatchPusher) PushBatch(_ context.Context, _, collection string, docs map[string]json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failCollections[collection] {
		return fmt.Errorf("push batch %s: remote unavailable", collection)
	}

	if f.remote[collection] == nil {
		f.remote[collection] = make(map[string]json.RawMessage)
	}
	for id, doc := range docs {
		f.remote[collection][id] = doc
	}
	return nil
}

func (f *fakeBatchPusher) PushSettings(_ string, settings json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, settings)
}

func (f *fakeBatchPusher) remoteCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.remote[collection])
}

func docs(ids ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(ids))
	for _, id := range ids {
		out[id] = json.RawMessage(`{"id":"` + id + `"}`)
	}
	return out
}

func TestMigrate_PushesEveryLocalRecord(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{
		store.CollectionPersonalItems: docs("t1", "t2", "t3", "t4", "t5"),
		store.CollectionSpaces:        docs("s1"),
	}}
	pusher := newFakeBatchPusher()
	svc := NewService(local, pusher, logger.Nop())

	require.NoError(t, svc.Migrate(context.Background(), "user-1"))

	assert.Equal(t, 5, pusher.remoteCount(store.CollectionPersonalItems))
	assert.Equal(t, 1, pusher.remoteCount(store.CollectionSpaces))
}

func TestMigrate_SkipsEmptyCollections(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{
		store.CollectionWatchlist: docs("w1"),
	}}
	pusher := newFakeBatchPusher()
	svc := NewService(local, pusher, logger.Nop())

	require.NoError(t, svc.Migrate(context.Background(), "user-1"))

	assert.Equal(t, 1, pusher.calls, "only the non-empty collection is pushed")
}

// Because pushes are upserts keyed by local id, a second migration run
// leaves the remote state unchanged instead of duplicating documents.
func TestMigrate_Idempotent(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{
		store.CollectionPersonalItems: docs("t1", "t2", "t3", "t4", "t5"),
	}}
	pusher := newFakeBatchPusher()
	svc := NewService(local, pusher, logger.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Migrate(ctx, "user-1"))
	require.NoError(t, svc.Migrate(ctx, "user-1"))

	assert.Equal(t, 5, pusher.remoteCount(store.CollectionPersonalItems))
}

func TestMigrate_PushesSettingsBlob(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{
		store.CollectionSettings: {
			store.SettingsRecordID: json.RawMessage(`{"theme":"dark"}`),
		},
	}}
	pusher := newFakeBatchPusher()
	svc := NewService(local, pusher, logger.Nop())

	require.NoError(t, svc.Migrate(context.Background(), "user-1"))

	require.Len(t, pusher.settings, 1)
	assert.JSONEq(t, `{"theme":"dark"}`, string(pusher.settings[0]))
}

func TestMigrate_NoSettingsIsFine(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{}}
	pusher := newFakeBatchPusher()
	svc := NewService(local, pusher, logger.Nop())

	require.NoError(t, svc.Migrate(context.Background(), "user-1"))
	assert.Empty(t, pusher.settings)
}

// A collection that fails to push does not abort the rest; the first
// failure is reported after everything else has had its chance.
func TestMigrate_FailedCollectionDoesNotBlockOthers(t *testing.T) {
	local := &fakeDumpStore{collections: map[string]map[string]json.RawMessage{
		store.CollectionPersonalItems: docs("t1"),
		store.CollectionSpaces:        docs("s1"),
	}}
	pusher := newFakeBatchPusher()
	pusher.failCollections = map[string]bool{store.CollectionPersonalItems: true}
	svc := NewService(local, pusher, logger.Nop())

	err := svc.Migrate(context.Background(), "user-1")
	require.Error(t, err)

	assert.Equal(t, 0, pusher.remoteCount(store.CollectionPersonalItems))
	assert.Equal(t, 1, pusher.remoteCount(store.CollectionSpaces),
		"collections after the failed one must still migrate")
}

// errDumpStore fails the read itself, which is fatal for the migration.
type errDumpStore struct{}

func (errDumpStore) Dump(context.Context, string) (map[string]json.RawMessage, error) {
	return nil, errors.New("database locked")
}

func (errDumpStore) Get(context.Context, string, string) (json.RawMessage, error) {
	return nil, store.ErrNotFound
}

func TestMigrate_LocalReadFailureAborts(t *testing.T) {
	pusher := newFakeBatchPusher()
	svc := NewService(errDumpStore{}, pusher, logger.Nop())

	err := svc.Migrate(context.Background(), "user-1")
	require.Error(t, err)
	assert.Zero(t, pusher.calls)
}
