// Package client assembles the persistence and sync engine into a running
// application: the local store (with in-memory fallback), the typed
// repositories the UI calls, the sync coordinator, the subscription
// manager and the migration service, all tied to the session registry.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/MKhiriev/go-organizer/internal/adapter"
	"github.com/MKhiriev/go-organizer/internal/config"
	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/internal/migrate"
	"github.com/MKhiriev/go-organizer/internal/repository"
	"github.com/MKhiriev/go-organizer/internal/session"
	"github.com/MKhiriev/go-organizer/internal/store"
	"github.com/MKhiriev/go-organizer/internal/subscription"
	"github.com/MKhiriev/go-organizer/internal/syncer"
	"github.com/MKhiriev/go-organizer/internal/tokens"
	"github.com/MKhiriev/go-organizer/models"
)

// App owns the engine's components for one process.
type App struct {
	cfg    *config.Config
	logger *logger.Logger

	store         *store.Store
	coordinator   *syncer.Coordinator
	subscriptions *subscription.Manager
	migrator      *migrate.Service

	Sessions *session.Registry

	PersonalItems *repository.Repository[models.PersonalItem]
	FeedItems     *repository.Repository[models.FeedItem]
	Workouts      *repository.Workouts
	BodyWeight    *repository.Repository[models.BodyWeightEntry]
	Spaces        *repository.Repository[models.Space]
	Watchlist     *repository.Repository[models.WatchlistEntry]
	Settings      *repository.Settings
	Tokens        *tokens.Store

	mu        sync.Mutex
	lastUser  string
	runCtx    context.Context
	runCancel context.CancelFunc
}

// NewApp wires every engine component. A local store that cannot be opened
// durably degrades to in-memory-only operation; the failure is logged once
// and the app keeps working without persistence across restarts.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	sessions := session.NewRegistry()

	localStore, err := store.Open(ctx, cfg.Storage, log)
	if errors.Is(err, store.ErrStorageFatal) {
		log.Error().Err(err).Msg("durable store unavailable, degrading to in-memory operation")
		localStore, err = store.OpenInMemory(ctx, log)
	}
	if err != nil {
		return nil, err
	}

	var remote interface {
		adapter.RemoteStore
		adapter.SnapshotSource
	}
	if cfg.Remote.BaseURL == "" {
		remote = adapter.Offline{}
	} else {
		remote, err = adapter.NewHTTPRemoteStore(cfg.Remote, sessions, log)
		if err != nil {
			return nil, err
		}
	}

	coordinator := syncer.New(remote, syncer.Config{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseDelay:   cfg.Sync.BaseDelay,
		MaxDelay:    cfg.Sync.MaxDelay,
		Debounce:    cfg.Sync.Debounce,
	}, log)

	deps := repository.Deps{
		Local:   localStore,
		Pusher:  coordinator,
		Session: sessions,
		Logger:  log,
	}

	runCtx, runCancel := context.WithCancel(ctx)
	app := &App{
		cfg:           cfg,
		logger:        log,
		store:         localStore,
		coordinator:   coordinator,
		subscriptions: subscription.NewManager(remote, localStore, log),
		migrator:      migrate.NewService(localStore, coordinator, log),
		Sessions:      sessions,
		PersonalItems: repository.NewPersonalItems(deps),
		FeedItems:     repository.NewFeedItems(deps),
		Workouts:      repository.NewWorkouts(deps),
		BodyWeight:    repository.NewBodyWeight(deps),
		Spaces:        repository.NewSpaces(deps),
		Watchlist:     repository.NewWatchlist(deps),
		Settings:      repository.NewSettings(localStore, coordinator, sessions, log),
		Tokens:        tokens.NewStore(localStore, cfg.App.TokenPepper, log),
		runCtx:        runCtx,
		runCancel:     runCancel,
	}

	sessions.OnChange(app.onSessionChange)

	return app, nil
}

// onSessionChange reacts to sign-in and sign-out. Sign-in opens one
// listener per syncable collection and, on a transition from signed-out,
// kicks off the one-time migration of offline history. Sign-out tears
// everything down, including pending push retry timers.
func (a *App) onSessionChange(s *session.Session) {
	if s == nil {
		a.mu.Lock()
		a.lastUser = ""
		a.mu.Unlock()

		a.subscriptions.UnsubscribeAll()
		a.coordinator.CancelPending()
		a.logger.Info().Msg("signed out, sync torn down")
		return
	}

	a.mu.Lock()
	firstSignIn := a.lastUser != s.UserID
	a.lastUser = s.UserID
	a.mu.Unlock()

	for _, collection := range store.SyncableCollections {
		if _, err := a.subscriptions.Subscribe(a.runCtx, collection, s.UserID, nil); err != nil {
			a.logger.Err(err).Str("collection", collection).Msg("failed to open remote listener")
		}
	}

	if firstSignIn {
		userID := s.UserID
		go func() {
			if err := a.migrator.Migrate(a.runCtx, userID); err != nil {
				a.logger.Err(err).Str("user_id", userID).Msg("offline history migration incomplete")
			}
		}()
	}
}

// Run bootstraps the session from config, if a token was provided, and
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.App.AuthToken != "" {
		sess, err := session.FromToken(a.cfg.App.AuthToken)
		if err != nil {
			a.logger.Err(err).Msg("ignoring invalid bootstrap auth token")
		} else {
			a.Sessions.Set(sess)
		}
	}

	<-ctx.Done()
	return a.Close()
}

// Close shuts the engine down: listeners first, then pending pushes, then
// the store.
func (a *App) Close() error {
	a.runCancel()
	a.subscriptions.UnsubscribeAll()
	a.coordinator.Close()
	return a.store.Close()
}
