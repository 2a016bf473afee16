package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/session"
	"github.com/MKhiriev/go-organizer/internal/store"
)

// SettingsPusher schedules the wholesale settings push onto the user
// document root.
type SettingsPusher interface {
	PushSettings(userID string, settings json.RawMessage)
}

// Settings stores the user's settings as one opaque blob, replaced
// wholesale on every change. The engine does not interpret its contents;
// themes and defaults belong to the UI layer.
type Settings struct {
	local   LocalStore
	pusher  SettingsPusher
	session session.Source
	logger  *logger.Logger
}

func NewSettings(local LocalStore, pusher SettingsPusher, sess session.Source, log *logger.Logger) *Settings {
	return &Settings{local: local, pusher: pusher, session: sess, logger: log}
}

// Get returns the current settings blob, or an empty map if none has been
// stored yet.
func (s *Settings) Get(ctx context.Context) (map[string]any, error) {
	payload, err := s.local.Get(ctx, store.CollectionSettings, store.SettingsRecordID)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	var settings map[string]any
	if err = json.Unmarshal(payload, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Set replaces the settings blob wholesale and schedules a push onto the
// user document root if a session exists.
func (s *Settings) Set(ctx context.Context, settings map[string]any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err = s.local.Put(ctx, store.CollectionSettings, store.SettingsRecordID, raw); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}

	if sess, ok := s.session.Current(); ok {
		s.pusher.PushSettings(sess.UserID, raw)
	}
	return nil
}
