// Package bootstrap assembles the session client from configuration: token store backend,
// backend API client, session service, authorized HTTP client and keepalive scheduler.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-hr-session/apiclient"
	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/observability"
	"github.com/jrsteele09/go-hr-session/keepalive"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/session"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/rs/zerolog"
)

// App holds the wired components. Close releases the store and stops the scheduler.
type App struct {
	Config    config.Config
	Store     *tokenstore.Store
	Backend   *backend.Client
	Session   *session.Service
	Client    *apiclient.Client
	Keepalive *keepalive.Scheduler

	closer io.Closer
}

// New opens the configured store and builds every component on top of it. nav may be nil.
func New(ctx context.Context, cfg config.Config, nav navigation.Navigator, logger zerolog.Logger) (*App, error) {
	backendStore, closer, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	if nav == nil {
		nav = navigation.Discard{}
	}

	store := tokenstore.New(backendStore, logger.With().Str("component", "tokenstore").Logger())
	api := backend.NewFromConfig(cfg, logger.With().Str("component", "backend").Logger())

	opts := []session.Option{
		session.WithLogger(logger.With().Str("component", "session").Logger()),
		session.WithNavigator(nav),
		session.WithTiming(cfg),
	}
	if cfg.GetSentryDSN() != "" {
		opts = append(opts, session.WithReporter(observability.NewRefreshReporter(nil)))
	}
	svc := session.New(store, api, opts...)

	client := apiclient.New(cfg.GetBaseURL(), svc, nav,
		apiclient.WithLogger(logger.With().Str("component", "apiclient").Logger()),
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithLogoutDelay(cfg.GetLogoutDelay()),
	)

	logger.Info().
		Str("driver", cfg.GetStoreDriver()).
		Str("profile", cfg.GetStoreProfile()).
		Bool("sealed", cfg.GetStorePassphrase() != "").
		Bool("storage", store.Available()).
		Str("base_url", cfg.GetBaseURL()).
		Msg("session client ready")

	return &App{
		Config:    cfg,
		Store:     store,
		Backend:   api,
		Session:   svc,
		Client:    client,
		Keepalive: keepalive.New(svc, cfg.GetKeepaliveSchedule(), logger.With().Str("component", "keepalive").Logger()),
		closer:    closer,
	}, nil
}

func (a *App) Close() error {
	<-a.Keepalive.Stop().Done()
	return a.closer.Close()
}
