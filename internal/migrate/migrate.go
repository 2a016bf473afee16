// Package migrate reconciles a device's offline history with the remote
// store the first time it authenticates. Every local record in every
// syncable collection is batch-pushed; because pushes are upserts keyed by
// the existing local id, running the migration again creates no duplicate
// remote documents. The surrounding session component decides when to call
// it; this service holds no "already migrated" state of its own.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/store"
)

// DumpStore is the slice of the local store the migration reads.
type DumpStore interface {
	Dump(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
}

// BatchPusher is the slice of the sync coordinator the migration drives.
type BatchPusher interface {
	PushBatch(ctx context.Context, userID, collection string, docs map[string]json.RawMessage) error
	PushSettings(userID string, settings json.RawMessage)
}

// Service performs the one-time bulk reconciliation.
type Service struct {
	local  DumpStore
	pusher BatchPusher
	logger *logger.Logger
}

func NewService(local DumpStore, pusher BatchPusher, log *logger.Logger) *Service {
	return &Service{local: local, pusher: pusher, logger: log}
}

// Migrate pushes every local record across all syncable collections to the
// remote store under userID, plus the settings blob if one exists. A
// collection that fails to push is logged and skipped; the rest keep
// going — forward progress beats strict consistency here.
func (s *Service) Migrate(ctx context.Context, userID string) error {
	var firstErr error

	for _, collection := range store.SyncableCollections {
		docs, err := s.local.Dump(ctx, collection)
		if err != nil {
			return fmt.Errorf("read local %s for migration: %w", collection, err)
		}
		if len(docs) == 0 {
			continue
		}

		if err = s.pusher.PushBatch(ctx, userID, collection, docs); err != nil {
			s.logger.Err(err).
				Str("func", "Service.Migrate").
				Str("collection", collection).
				Int("records", len(docs)).
				Msg("failed to migrate collection")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		s.logger.Info().
			Str("func", "Service.Migrate").
			Str("collection", collection).
			Int("records", len(docs)).
			Msg("collection migrated")
	}

	settings, err := s.local.Get(ctx, store.CollectionSettings, store.SettingsRecordID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read local settings for migration: %w", err)
	}
	if len(settings) > 0 {
		s.pusher.PushSettings(userID, settings)
	}

	return firstErr
}
