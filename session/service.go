// Package session owns the in-memory authentication state, the single-flight refresh and the
// logout/restore paths. It is the only package that writes credentials or session cells.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/internal/config"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/tokencodec"
	"github.com/jrsteele09/go-hr-session/tokenstore"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultWaitInterval = 100 * time.Millisecond
	DefaultWaitCeiling  = 2 * time.Second
)

// API is the subset of the backend the session calls directly.
type API interface {
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResponse, error)
	Register(ctx context.Context, reg backend.Registration) (*backend.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.RefreshResponse, error)
	Revoke(ctx context.Context, accessToken, refreshToken string) error
}

var _ API = (*backend.Client)(nil)

// FailureReporter is told about refresh attempts that ended the session.
type FailureReporter interface {
	ReportRefreshFailure(err error)
}

// Service is the session state plus the operations that may change it.
type Service struct {
	store    *tokenstore.Store
	api      API
	codec    tokencodec.Codec
	nav      navigation.Navigator
	log      zerolog.Logger
	reporter FailureReporter

	waitInterval time.Duration
	waitCeiling  time.Duration

	user          Cell[*users.Profile]
	authenticated Cell[bool]
	refreshing    Cell[bool]

	signalMu sync.Mutex
	changed  chan struct{}

	refreshMu sync.Mutex
	group     singleflight.Group
	inFlight  bool
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

func WithCodec(codec tokencodec.Codec) Option {
	return func(s *Service) {
		s.codec = codec
	}
}

func WithNavigator(nav navigation.Navigator) Option {
	return func(s *Service) {
		s.nav = nav
	}
}

func WithReporter(reporter FailureReporter) Option {
	return func(s *Service) {
		s.reporter = reporter
	}
}

// WithWait sets the re-check interval and ceiling of bounded waits.
func WithWait(interval, ceiling time.Duration) Option {
	return func(s *Service) {
		s.waitInterval = interval
		s.waitCeiling = ceiling
	}
}

// WithTiming applies the configured expiry buffer and wait bounds.
func WithTiming(cfg config.TimingConfig) Option {
	return func(s *Service) {
		s.codec.Buffer = cfg.GetExpiryBuffer()
		s.waitInterval = cfg.GetWaitInterval()
		s.waitCeiling = cfg.GetWaitCeiling()
	}
}

// New creates a logged-out session over store. Call Restore to resynchronize with it.
func New(store *tokenstore.Store, api API, options ...Option) *Service {
	s := &Service{
		store:   store,
		api:     api,
		codec:   tokencodec.New(),
		nav:     navigation.Discard{},
		log:     log.Logger,
		changed: make(chan struct{}),
	}

	for _, opt := range options {
		opt(s)
	}

	if s.waitInterval <= 0 {
		s.waitInterval = DefaultWaitInterval
	}
	if s.waitCeiling <= 0 {
		s.waitCeiling = DefaultWaitCeiling
	}

	s.user.onChange = s.notify
	s.authenticated.onChange = s.notify
	s.refreshing.onChange = s.notify
	return s
}

func (s *Service) User() Observable[*users.Profile] { return &s.user }
func (s *Service) Authenticated() Observable[bool]  { return &s.authenticated }
func (s *Service) Refreshing() Observable[bool]     { return &s.refreshing }

func (s *Service) CurrentUser() *users.Profile { return s.user.Get() }
func (s *Service) IsAuthenticated() bool        { return s.authenticated.Get() }
func (s *Service) IsRefreshing() bool           { return s.refreshing.Get() }

// StorageAvailable reports whether credentials persist anywhere.
func (s *Service) StorageAvailable() bool {
	return s.store.Available()
}

// AccessToken reads the access token from the store, never from memory.
func (s *Service) AccessToken(ctx context.Context) string {
	token, _ := s.store.Get(ctx, tokenstore.KeyAccess)
	return token
}

func (s *Service) RefreshToken(ctx context.Context) string {
	token, _ := s.store.Get(ctx, tokenstore.KeyRefresh)
	return token
}

// IsExpired applies the session's codec to token.
func (s *Service) IsExpired(token string) bool {
	return s.codec.IsExpired(token)
}

// HasValidAccessToken reports whether the stored access token is fresh.
func (s *Service) HasValidAccessToken(ctx context.Context) bool {
	return !s.codec.IsExpired(s.AccessToken(ctx))
}

// Login exchanges credentials for a token pair and caches the returned profile.
func (s *Service) Login(ctx context.Context, creds backend.Credentials) (*users.Profile, error) {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		s.log.Warn().Err(err).Str("username", creds.Username).Msg("login failed")
		return nil, err
	}
	if err := s.establish(ctx, resp); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", resp.User.Username).Str("role", string(resp.User.Role)).Msg("logged in")
	return s.CurrentUser(), nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, reg backend.Registration) (*users.Profile, error) {
	resp, err := s.api.Register(ctx, reg)
	if err != nil {
		s.log.Warn().Err(err).Str("username", reg.Username).Msg("registration failed")
		return nil, err
	}
	if err := s.establish(ctx, resp); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", resp.User.Username).Msg("registered")
	return s.CurrentUser(), nil
}

func (s *Service) establish(ctx context.Context, resp *backend.LoginResponse) error {
	if err := s.store.Set(ctx, tokenstore.KeyAccess, resp.Access); err != nil {
		return err
	}
	if err := s.store.Set(ctx, tokenstore.KeyRefresh, resp.Refresh); err != nil {
		return err
	}
	user := resp.User
	if err := s.SaveProfile(ctx, &user); err != nil {
		return err
	}
	s.authenticated.set(true)
	s.log.Debug().Str("access", logging.Redact(resp.Access)).Str("refresh", logging.Redact(resp.Refresh)).Msg("credentials stored")
	return nil
}

// SaveProfile replaces the current user and its cached copy.
func (s *Service) SaveProfile(ctx context.Context, profile *users.Profile) error {
	s.user.set(profile)
	if profile == nil {
		return s.store.Remove(ctx, tokenstore.KeyUser)
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, tokenstore.KeyUser, string(raw))
}
