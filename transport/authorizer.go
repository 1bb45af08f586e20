// Package transport attaches session credentials to outgoing requests and recovers from a
// 401 with one refresh and one retransmission.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-hr-session/backend"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/internal/logging"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	HeaderRequestID = "X-Request-ID"

	DefaultLogoutDelay = 100 * time.Millisecond
)

// Session is what the authorizer needs from the session service.
type Session interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	IsRefreshing() bool
	WaitUntil(ctx context.Context, cond func() bool) bool
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

// Authorizer is an http.RoundTripper.
type Authorizer struct {
	base        http.RoundTripper
	session     Session
	nav         navigation.Navigator
	log         zerolog.Logger
	logoutDelay time.Duration
}

var _ http.RoundTripper = (*Authorizer)(nil)

type Option func(*Authorizer)

// WithBase sets the transport requests are sent on. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(a *Authorizer) {
		a.base = base
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authorizer) {
		a.log = logger
	}
}

// WithLogoutDelay sets how long a failed refresh waits before logging out.
func WithLogoutDelay(d time.Duration) Option {
	return func(a *Authorizer) {
		a.logoutDelay = d
	}
}

func New(session Session, nav navigation.Navigator, options ...Option) *Authorizer {
	a := &Authorizer{
		base:        http.DefaultTransport,
		session:     session,
		nav:         nav,
		log:         log.Logger,
		logoutDelay: DefaultLogoutDelay,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.nav == nil {
		a.nav = navigation.Discard{}
	}
	return a
}

func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	if backend.IsPublic(req.URL.Path) {
		return a.base.RoundTrip(req)
	}

	ctx := req.Context()
	req = req.Clone(ctx)
	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(HeaderRequestID, requestID)
	}
	if err := bufferBody(req); err != nil {
		return nil, err
	}
	logger := a.log.With().Str("request_id", requestID).Str("path", req.URL.Path).Logger()

	token := a.session.AccessToken(ctx)
	refreshingAtSend := a.session.IsRefreshing()
	if refreshingAtSend && token == "" {
		settled := a.session.WaitUntil(ctx, func() bool {
			return !a.session.IsRefreshing() || a.session.AccessToken(ctx) != ""
		})
		if !settled {
			logger.Warn().Err(&autherrors.TimeoutError{Kind: autherrors.WaitInterceptor}).Msg("sending without waiting for refresh")
		}
		token = a.session.AccessToken(ctx)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if token == "" && a.session.RefreshToken(ctx) == "" {
		logger.Debug().Msg("401 without credentials")
		return resp, nil
	}
	if refreshingAtSend || a.session.IsRefreshing() {
		logger.Debug().Msg("401 while a refresh is in flight, leaving it to the refresh")
		return resp, nil
	}

	drain(resp)
	logger.Debug().Str("token", logging.Redact(token)).Msg("401, refreshing access token")
	newToken, err := a.session.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("refresh after 401 failed")
		a.scheduleLogout()
		return nil, &autherrors.UnauthorizedError{RequestID: requestID, Err: err}
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", "Bearer "+newToken)
	return a.base.RoundTrip(retry)
}

// scheduleLogout lets handlers of the same failure settle before the session is torn down.
func (a *Authorizer) scheduleLogout() {
	time.AfterFunc(a.logoutDelay, func() {
		if navigation.OnLogin(a.nav.CurrentURL()) {
			return
		}
		a.session.Logout(context.Background())
	})
}

func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return nil
}

func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
