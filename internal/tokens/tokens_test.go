// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tokens

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

type fakeLocalStore struct {
	records map[string]json.RawMessage
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{records: make(map[string]json.RawMessage)}
}

func (f *fakeLocalStore) key(collection, id string) string { return collection + "/" + id }

func (f *fakeLocalStore) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	payload, ok := f.records[f.key(collection, id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return payload, nil
}

func (f *fakeLocalStore) Put(_ context.Context, collection, id string, payload json.RawMessage) error {
	f.records[f.key(collection, id)] = payload
	return nil
}

func (f *fakeLocalStore) Delete(_ context.Context, collection, id string) error {
	delete(f.records, f.key(collection, id))
	return nil
}

func newTestStore(local *fakeLocalStore) *Store {
	s := NewStore(local, "test-pepper", logger.Nop())
	// Cheaper KDF parameters keep the test suite fast; the cipher path is
	// identical.
	s.argonMemory = 8 * 1024
	return s
}

func sampleToken() models.ServiceToken {
	return models.ServiceToken{
		AccessToken:  "ya29.a0AfB_secret",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		Extra:        map[string]string{"scope": "calendar.readonly", "account": "me@example.com"},
	}
}

func TestStore_SaveGetRoundTrip(t *testing.T) {
	s := newTestStore(newFakeLocalStore())
	ctx := context.Background()

	want := sampleToken()
	require.NoError(t, s.Save(ctx, "google-calendar", want))

	got, err := s.Get(ctx, "google-calendar")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStore_GetUnknownService(t *testing.T) {
	s := newTestStore(newFakeLocalStore())

	got, err := s.Get(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TokenNeverStoredInTheClear(t *testing.T) {
	local := newFakeLocalStore()
	s := newTestStore(local)

	require.NoError(t, s.Save(context.Background(), "google-calendar", sampleToken()))

	raw := local.records[local.key(store.CollectionAuthTokens, "google-calendar")]
	require.NotEmpty(t, raw)
	assert.NotContains(t, string(raw), "ya29.a0AfB_secret")
	assert.NotContains(t, string(raw), "me@example.com")

	var envelope models.EncryptedEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "google-calendar", envelope.ServiceName)
	assert.NotEmpty(t, envelope.Encrypted.Salt)
	assert.NotEmpty(t, envelope.Encrypted.IV)
	assert.NotEmpty(t, envelope.Encrypted.Data)
}

func TestStore_SaveOverwritesPreviousToken(t *testing.T) {
	s := newTestStore(newFakeLocalStore())
	ctx := context.Background()

	first := sampleToken()
	require.NoError(t, s.Save(ctx, "github", first))

	second := first
	second.AccessToken = "gho_rotated"
	require.NoError(t, s.Save(ctx, "github", second))

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gho_rotated", got.AccessToken)
}

// Flipping any ciphertext byte must fail GCM authentication; the envelope
// is then purged and Get reports "no token" instead of an error.
func TestStore_TamperedEnvelopeIsPurged(t *testing.T) {
	local := newFakeLocalStore()
	s := newTestStore(local)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "github", sampleToken()))

	key := local.key(store.CollectionAuthTokens, "github")
	var envelope models.EncryptedEnvelope
	require.NoError(t, json.Unmarshal(local.records[key], &envelope))

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Encrypted.Data)
	require.NoError(t, err)
	ciphertext[len(ciphertext)/2] ^= 0x01
	envelope.Encrypted.Data = base64.StdEncoding.EncodeToString(ciphertext)

	tampered, err := json.Marshal(envelope)
	require.NoError(t, err)
	local.records[key] = tampered

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok := local.records[key]
	assert.False(t, ok, "unrecoverable envelope must be deleted")
}

// An envelope sealed for one service must not open under another service
// name, even with the same pepper: the name participates in the key and in
// the AEAD associated data.
func TestStore_EnvelopeBoundToServiceName(t *testing.T) {
	local := newFakeLocalStore()
	s := newTestStore(local)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "github", sampleToken()))

	// Copy the envelope under a different service key.
	src := local.key(store.CollectionAuthTokens, "github")
	dst := local.key(store.CollectionAuthTokens, "gitlab")
	local.records[dst] = local.records[src]

	got, err := s.Get(ctx, "gitlab")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CorruptEnvelopeJSONIsPurged(t *testing.T) {
	local := newFakeLocalStore()
	s := newTestStore(local)
	ctx := context.Background()

	key := local.key(store.CollectionAuthTokens, "github")
	local.records[key] = json.RawMessage(`{"serviceName": 42}`)

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, ok := local.records[key]
	assert.False(t, ok)
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(newFakeLocalStore())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "github", sampleToken()))
	require.NoError(t, s.Remove(ctx, "github"))

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Removing again is fine.
	require.NoError(t, s.Remove(ctx, "github"))
}
