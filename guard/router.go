package guard

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/users"
	"github.com/rs/zerolog"
)

// Route restricts a view subtree to a set of roles.
type Route struct {
	Prefix string
	Roles  []users.Role
}

// PublicViews are entered without any check.
var PublicViews = []string{navigation.PathLogin, "/register"}

// PortalRoutes are the role-restricted areas of the HR portal. Views not listed only require
// a signed-in user.
var PortalRoutes = []Route{
	{Prefix: "/employee", Roles: []users.Role{users.RoleAdmin, users.RoleHRManager, users.RoleManager}},
	{Prefix: "/department", Roles: []users.Role{users.RoleAdmin, users.RoleHRManager}},
	{Prefix: "/recruitment", Roles: []users.Role{users.RoleAdmin, users.RoleHRManager, users.RoleRecruiter}},
	{Prefix: "/settings", Roles: []users.Role{users.RoleAdmin, users.RoleHRManager}},
}

// Router performs guarded navigation: the route authorizer, then the role check of the first
// matching route, then the navigation itself.
type Router struct {
	auth   *RouteAuthorizer
	users  UserSource
	nav    navigation.Navigator
	routes []Route
}

func NewRouter(session Session, nav navigation.Navigator, routes []Route, logger zerolog.Logger) *Router {
	if nav == nil {
		nav = navigation.Discard{}
	}
	return &Router{
		auth:   NewRouteAuthorizer(session, nav, logger),
		users:  session,
		nav:    nav,
		routes: routes,
	}
}

// Navigate enters target if every guard allows it.
func (r *Router) Navigate(ctx context.Context, target string) Decision {
	parsed, err := url.Parse(target)
	if err != nil {
		return Decision{Reason: "invalid target: " + err.Error()}
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = navigation.PathDashboard
		target = parsed.String()
	}

	if isPublic(parsed.Path) {
		r.nav.Navigate(parsed.Path, parsed.Query())
		return Decision{Allow: true, Reason: "public view"}
	}

	chain := Chain{r.auth}
	if route, ok := r.match(parsed.Path); ok {
		chain = append(chain, NewRoleAuthorizer(r.users, r.nav, route.Roles...))
	}

	d := chain.CanActivate(ctx, target)
	if d.Allow {
		r.nav.Navigate(parsed.Path, parsed.Query())
	}
	return d
}

func (r *Router) match(path string) (Route, bool) {
	for _, route := range r.routes {
		if path == route.Prefix || strings.HasPrefix(path, route.Prefix+"/") {
			return route, true
		}
	}
	return Route{}, false
}

func isPublic(path string) bool {
	for _, view := range PublicViews {
		if path == view || strings.HasPrefix(path, view+"/") {
			return true
		}
	}
	return false
}
