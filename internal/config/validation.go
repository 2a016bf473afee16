package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidRemoteURL   = errors.New("invalid remote base url")
	ErrInvalidSyncRetries = errors.New("sync max attempts must be at least 1")
	ErrInvalidSyncDelays  = errors.New("sync delays must be positive")
	ErrEmptyStoragePath   = errors.New("storage path cannot be empty")
)

func (c *Config) validate() error {
	if raw := strings.TrimSpace(c.Remote.BaseURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidRemoteURL, raw)
		}
	}

	if c.Sync.MaxAttempts < 1 {
		return ErrInvalidSyncRetries
	}
	if c.Sync.BaseDelay <= 0 || c.Sync.MaxDelay <= 0 || c.Sync.Debounce < 0 {
		return ErrInvalidSyncDelays
	}

	if c.Storage.Path == "" {
		return ErrEmptyStoragePath
	}

	return nil
}
