// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config assembles the engine configuration from compiled defaults,
// an optional JSON file, environment variables and command-line flags.
// Later layers win: flags override env, env overrides JSON, JSON overrides
// the defaults.
package config

import "time"

// App holds application-level settings.
type App struct {
	// TokenPepper is the static application salt component mixed into the
	// token-store key derivation. It only raises the bar against passive
	// storage inspection; it is not a defence against code running in the
	// same process.
	TokenPepper string `json:"token_pepper" env:"TOKEN_PEPPER"`

	// AuthToken optionally bootstraps a signed-in session from a bearer
	// token obtained by the external auth component.
	AuthToken string `json:"auth_token" env:"AUTH_TOKEN"`
}

// Remote holds settings for the remote document store.
type Remote struct {
	// BaseURL is the remote document store endpoint. Empty means the engine
	// runs purely local; pushes fail transiently and are dropped.
	BaseURL string `json:"base_url" env:"URL"`

	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration `json:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// Storage holds local store settings.
type Storage struct {
	// Path is the SQLite database file. ":memory:" selects the in-memory
	// degraded mode directly.
	Path string `json:"path" env:"PATH"`
}

// Sync holds push retry and coalescing settings.
type Sync struct {
	// MaxAttempts bounds delivery attempts per operation, first try included.
	MaxAttempts int `json:"max_attempts" env:"MAX_ATTEMPTS"`
	// BaseDelay is the initial backoff delay; it doubles per attempt.
	BaseDelay time.Duration `json:"base_delay" env:"BASE_DELAY"`
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `json:"max_delay" env:"MAX_DELAY"`
	// Debounce is how long a scheduled push waits before its first send so
	// that rapid successive writes to the same record coalesce.
	Debounce time.Duration `json:"debounce" env:"DEBOUNCE"`
}

// Config is the top-level engine configuration.
type Config struct {
	App     App     `json:"app" envPrefix:"ORGANIZER_"`
	Remote  Remote  `json:"remote" envPrefix:"ORGANIZER_REMOTE_"`
	Storage Storage `json:"storage" envPrefix:"ORGANIZER_STORAGE_"`
	Sync    Sync    `json:"sync" envPrefix:"ORGANIZER_SYNC_"`

	// jsonFilePath is carried by the flags layer so the builder knows which
	// file to load for the JSON layer.
	jsonFilePath string
}

func defaults() *Config {
	return &Config{
		App: App{
			TokenPepper: "go-organizer/token-store/v1",
		},
		Remote: Remote{
			RequestTimeout: 15 * time.Second,
		},
		Storage: Storage{
			Path: "organizer.db",
		},
		Sync: Sync{
			MaxAttempts: 4,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			Debounce:    100 * time.Millisecond,
		},
	}
}

// Get builds and validates the engine configuration from all layers.
func Get() (*Config, error) {
	return newConfigBuilder().
		withFlags().
		withEnv().
		withJSON().
		withDefaults().
		build()
}
