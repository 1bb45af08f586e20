package backend

import "strings"

// Backend route constants, relative to the configured API base URL
const (
	// Public auth routes
	RouteLogin    = "/login/login/"
	RouteRegister = "/login/register/"
	RouteRefresh  = "/login/refresh/"

	// Bearer-protected routes
	RouteLogout = "/login/logout/"
	RouteMe     = "/users/custom-users/me/"
)

// PublicRoutes never carry a bearer header and are never retried after a refresh.
var PublicRoutes = []string{RouteLogin, RouteRegister, RouteRefresh}

// IsPublic reports whether path targets one of the public auth routes.
func IsPublic(path string) bool {
	for _, route := range PublicRoutes {
		if strings.Contains(path, route) {
			return true
		}
	}
	return false
}
