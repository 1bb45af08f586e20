// Package keepalive renews the access token on a schedule so idle sessions are already fresh
// when the next request or navigation arrives.
package keepalive

import (
	"context"

	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

type Session interface {
	IsAuthenticated() bool
	IsRefreshing() bool
	RefreshToken(ctx context.Context) string
	TokenSource(ctx context.Context) oauth2.TokenSource
}

type Scheduler struct {
	cron    *cron.Cron
	session Session
	spec    string
	log     zerolog.Logger
	ctx     context.Context
}

// New schedules ticks with a cron spec such as "@every 1m". An empty spec disables the
// scheduler.
func New(session Session, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		session: session,
		spec:    spec,
		log:     log,
		ctx:     context.Background(),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		return nil
	}
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.spec, s.Tick); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Debug().Str("schedule", s.spec).Msg("keepalive started")
	return nil
}

// Stop halts the schedule. The returned context is done once a running tick has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Tick refreshes the access token when it is inside the expiry buffer.
func (s *Scheduler) Tick() {
	if !s.session.IsAuthenticated() || s.session.IsRefreshing() {
		return
	}
	if s.session.RefreshToken(s.ctx) == "" {
		return
	}

	token, err := s.session.TokenSource(s.ctx).Token()
	if err != nil {
		s.log.Warn().Err(err).Msg("keepalive refresh failed")
		return
	}
	s.log.Debug().Str("access", logging.Redact(token.AccessToken)).Time("valid_until", token.Expiry).Msg("keepalive tick")
}
