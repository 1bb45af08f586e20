// Package guard decides whether a view may be entered, bootstrapping a refresh when the
// stored access token is stale and waiting a bounded time for it.
package guard

import (
	"context"
	"net/url"

	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Decision is the outcome of a guard check. Redirect is where the user was sent when denied.
type Decision struct {
	Allow    bool
	Redirect string
	Reason   string
}

// Authorizer gates entry to a view.
type Authorizer interface {
	CanActivate(ctx context.Context, target string) Decision
}

// Session is what the route authorizer needs from the session service.
type Session interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	IsExpired(token string) bool
	IsRefreshing() bool
	CheckAuth(ctx context.Context) bool
	BeginRefresh(ctx context.Context) (<-chan singleflight.Result, error)
	WaitUntil(ctx context.Context, cond func() bool) bool
	CurrentUser() *users.Profile
}

// RouteAuthorizer admits a view when the store holds a usable credential.
type RouteAuthorizer struct {
	session Session
	nav     navigation.Navigator
	log     zerolog.Logger
}

var _ Authorizer = (*RouteAuthorizer)(nil)

func NewRouteAuthorizer(session Session, nav navigation.Navigator, logger ...zerolog.Logger) *RouteAuthorizer {
	g := &RouteAuthorizer{session: session, nav: nav, log: log.Logger}
	if len(logger) > 0 {
		g.log = logger[0]
	}
	if g.nav == nil {
		g.nav = navigation.Discard{}
	}
	return g
}

func (g *RouteAuthorizer) CanActivate(ctx context.Context, target string) Decision {
	token := g.session.AccessToken(ctx)
	refreshToken := g.session.RefreshToken(ctx)
	if token == "" && refreshToken == "" {
		return g.deny(target, "no credentials")
	}

	g.session.CheckAuth(ctx)

	needsRefresh := g.session.IsExpired(token)
	refreshing := g.session.IsRefreshing()
	if refreshToken == "" {
		if needsRefresh {
			return g.deny(target, "access token expired")
		}
		return Decision{Allow: true, Reason: "access token valid"}
	}
	if !needsRefresh && !refreshing {
		return Decision{Allow: true, Reason: "access token valid"}
	}

	if !refreshing && g.session.IsExpired(g.session.AccessToken(ctx)) {
		g.startRefresh(ctx, target)
	}

	settled := g.session.WaitUntil(ctx, func() bool {
		return !g.session.IsRefreshing() || !g.session.IsExpired(g.session.AccessToken(ctx))
	})
	if !settled {
		g.log.Warn().Err(&autherrors.TimeoutError{Kind: autherrors.WaitGuard}).Str("target", target).Msg("deciding without a settled refresh")
	}

	g.session.CheckAuth(ctx)
	if !g.session.IsExpired(g.session.AccessToken(ctx)) {
		return Decision{Allow: true, Reason: "access token refreshed"}
	}
	if g.session.RefreshToken(ctx) != "" {
		return Decision{Allow: true, Reason: "refresh token present"}
	}
	return g.deny(target, "refresh failed")
}

// startRefresh kicks off a refresh the guard does not own. The coordinator logs a failure and
// ends the session; the guard's own deny carries the return URL.
func (g *RouteAuthorizer) startRefresh(ctx context.Context, target string) {
	if _, err := g.session.BeginRefresh(ctx); err != nil {
		g.log.Warn().Err(err).Str("target", target).Msg("refresh could not start")
	}
}

func (g *RouteAuthorizer) deny(target, reason string) Decision {
	d := Decision{Reason: reason}
	if !navigation.OnLogin(target) {
		query := navigation.LoginWithReturn(target)
		g.nav.Navigate(navigation.PathLogin, query)
		d.Redirect = redirectURL(navigation.PathLogin, query)
	}
	g.log.Info().Str("target", target).Str("reason", reason).Msg("navigation denied")
	return d
}

func redirectURL(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
