// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tokens stores third-party OAuth tokens encrypted at rest. Keys
// are derived with Argon2id from the service name mixed with a static
// application pepper, plus a random per-entry salt; payloads are sealed
// with AES-256-GCM. Because the pepper is compiled in, this raises the bar
// against passive inspection of the local database only — it is not a
// defence against code executing in the same process.
package tokens

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/models"
)

// LocalStore is the slice of the local store the token store writes
// envelopes through.
type LocalStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, payload json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
}

// Store encrypts service tokens before they reach the local store and
// decrypts them on the way out. An envelope that fails to decrypt (tamper,
// corruption, or a salt from another device) is treated as unrecoverable:
// it is deleted and Get returns nil instead of an error.
type Store struct {
	local  LocalStore
	pepper string
	logger *logger.Logger

	// Argon2id tuning parameters, stored so they can be adjusted per
	// deployment target.
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32
}

// NewStore constructs a token store with the Argon2id parameters
// recommended by OWASP (2024): 1 iteration, 64 MiB, 4 threads, 256-bit key.
func NewStore(local LocalStore, pepper string, log *logger.Logger) *Store {
	return &Store{
		local:        local,
		pepper:       pepper,
		logger:       log,
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
	}
}

// Save encrypts token and persists it as an envelope keyed by service.
func (s *Store) Save(ctx context.Context, service string, token models.ServiceToken) error {
	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	salt := make([]byte, 16)
	if _, err = io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := s.cipherFor(service, salt)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	// The service name doubles as AAD so an envelope copied onto another
	// key fails authentication.
	ciphertext := gcm.Seal(nil, nonce, plaintext, []byte(service))

	envelope := models.EncryptedEnvelope{
		ServiceName: service,
		Encrypted: models.EncryptedPayload{
			Salt: base64.StdEncoding.EncodeToString(salt),
			IV:   base64.StdEncoding.EncodeToString(nonce),
			Data: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err = s.local.Put(ctx, store.CollectionAuthTokens, service, raw); err != nil {
		return fmt.Errorf("store envelope for %s: %w", service, err)
	}

	return nil
}

// Get decrypts and returns the token stored for service, or nil if none
// exists. Any decryption failure purges the entry and returns nil; no
// error crosses this boundary for bad ciphertext.
func (s *Store) Get(ctx context.Context, service string) (*models.ServiceToken, error) {
	raw, err := s.local.Get(ctx, store.CollectionAuthTokens, service)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load envelope for %s: %w", service, err)
	}

	token, err := s.open(service, raw)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("func", "Store.Get").
			Str("service", service).
			Msg("token envelope unrecoverable, purging entry")
		if delErr := s.local.Delete(ctx, store.CollectionAuthTokens, service); delErr != nil {
			return nil, fmt.Errorf("purge unrecoverable envelope for %s: %w", service, delErr)
		}
		return nil, nil
	}

	return token, nil
}

// Remove deletes the stored envelope for service, if any.
func (s *Store) Remove(ctx context.Context, service string) error {
	if err := s.local.Delete(ctx, store.CollectionAuthTokens, service); err != nil {
		return fmt.Errorf("remove envelope for %s: %w", service, err)
	}
	return nil
}

func (s *Store) open(service string, raw json.RawMessage) (*models.ServiceToken, error) {
	var envelope models.EncryptedEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Encrypted.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(envelope.Encrypted.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Encrypted.Data)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := s.cipherFor(service, salt)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("bad nonce length %d", len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(service))
	if err != nil {
		return nil, fmt.Errorf("decrypt envelope: %w", err)
	}

	var token models.ServiceToken
	if err = json.Unmarshal(plaintext, &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}

// cipherFor derives the per-entry key and builds the AEAD for it.
func (s *Store) cipherFor(service string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(
		[]byte(service+s.pepper),
		salt,
		s.argonTime,
		s.argonMemory,
		s.argonThreads,
		s.argonKeyLen,
	)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
