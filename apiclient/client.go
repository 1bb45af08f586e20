// Package apiclient is the view layer's entry point: JSON calls to the HR portal API through
// the request authorizer, profile helpers and guarded navigation.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-hr-session/backend"
	"github.com/jrsteele09/go-hr-session/guard"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/session"
	"github.com/jrsteele09/go-hr-session/transport"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	_ transport.Session = (*session.Service)(nil)
	_ guard.Session     = (*session.Service)(nil)
)

// APIError is returned for any non-2xx answer. A 401 that survived the refresh-and-retry
// wraps autherrors.ErrUnauthorized.
type APIError = backend.APIError

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Service
	router  *guard.Router
	log     zerolog.Logger
}

type options struct {
	logger      zerolog.Logger
	base        http.RoundTripper
	timeout     time.Duration
	logoutDelay time.Duration
	routes      []guard.Route
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport sets the transport beneath the request authorizer.
func WithTransport(base http.RoundTripper) Option {
	return func(o *options) {
		o.base = base
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func WithLogoutDelay(d time.Duration) Option {
	return func(o *options) {
		o.logoutDelay = d
	}
}

// WithRoutes replaces the role-restricted route table used by Navigate.
func WithRoutes(routes []guard.Route) Option {
	return func(o *options) {
		o.routes = routes
	}
}

func New(baseURL string, svc *session.Service, nav navigation.Navigator, opts ...Option) *Client {
	o := options{
		logger:      log.Logger,
		base:        http.DefaultTransport,
		logoutDelay: transport.DefaultLogoutDelay,
		routes:      guard.PortalRoutes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if nav == nil {
		nav = navigation.Discard{}
	}

	authorizer := transport.New(svc, nav,
		transport.WithBase(o.base),
		transport.WithLogger(o.logger),
		transport.WithLogoutDelay(o.logoutDelay),
	)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: authorizer, Timeout: o.timeout},
		session: svc,
		router:  guard.NewRouter(svc, nav, o.routes, o.logger),
		log:     o.logger,
	}
}

func (c *Client) Session() *session.Service {
	return c.session
}

// HTTPClient returns the authorized client for callers that need raw responses.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Navigate performs guarded navigation to target.
func (c *Client) Navigate(ctx context.Context, target string) guard.Decision {
	return c.router.Navigate(ctx, target)
}

func (c *Client) Get(ctx context.Context, route string, out any) error {
	return c.Do(ctx, http.MethodGet, route, nil, out)
}

func (c *Client) Post(ctx context.Context, route string, body, out any) error {
	return c.Do(ctx, http.MethodPost, route, body, out)
}

func (c *Client) Patch(ctx context.Context, route string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, route, body, out)
}

func (c *Client) Delete(ctx context.Context, route string) error {
	return c.Do(ctx, http.MethodDelete, route, nil, nil)
}

// Do sends body as JSON to route and decodes the answer into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, route string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(route), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		cause := autherrors.ErrUnexpectedResponse
		if resp.StatusCode == http.StatusUnauthorized {
			cause = &autherrors.UnauthorizedError{RequestID: resp.Request.Header.Get(transport.HeaderRequestID)}
		}
		apiErr := backend.NewAPIError(resp.StatusCode, raw, cause)
		c.log.Debug().Str("method", method).Str("route", route).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("api error")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, route, err)
	}
	return nil
}

// Me fetches the signed-in user's profile and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (*users.Profile, error) {
	var profile users.Profile
	if err := c.Get(ctx, backend.RouteMe, &profile); err != nil {
		return nil, err
	}
	if err := c.session.SaveProfile(ctx, &profile); err != nil {
		c.log.Warn().Err(err).Msg("profile could not be cached")
	}
	return &profile, nil
}

// UpdateMe applies a partial profile change.
func (c *Client) UpdateMe(ctx context.Context, update users.Update) (*users.Profile, error) {
	var profile users.Profile
	if err := c.Patch(ctx, backend.RouteMe, update, &profile); err != nil {
		return nil, err
	}
	if err := c.session.SaveProfile(ctx, &profile); err != nil {
		c.log.Warn().Err(err).Msg("profile could not be cached")
	}
	return &profile, nil
}

func (c *Client) url(route string) string {
	if strings.HasPrefix(route, "http://") || strings.HasPrefix(route, "https://") {
		return route
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return c.baseURL + route
}
