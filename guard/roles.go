package guard

import (
	"context"

	"github.com/jrsteele09/go-hr-session/navigation"
	"github.com/jrsteele09/go-hr-session/users"
)

// UserSource exposes the signed-in user.
type UserSource interface {
	CurrentUser() *users.Profile
}

// RoleAuthorizer admits users whose role is in the allowed set, and staff accounts.
type RoleAuthorizer struct {
	users   UserSource
	nav     navigation.Navigator
	allowed users.RoleSet
}

var _ Authorizer = (*RoleAuthorizer)(nil)

func NewRoleAuthorizer(source UserSource, nav navigation.Navigator, roles ...users.Role) *RoleAuthorizer {
	if nav == nil {
		nav = navigation.Discard{}
	}
	return &RoleAuthorizer{users: source, nav: nav, allowed: users.NewRoleSet(roles...)}
}

func (r *RoleAuthorizer) CanActivate(_ context.Context, _ string) Decision {
	user := r.users.CurrentUser()
	if user == nil {
		r.nav.Navigate(navigation.PathLogin, nil)
		return Decision{Redirect: navigation.PathLogin, Reason: "no user"}
	}
	if user.CanAccess(r.allowed) {
		return Decision{Allow: true, Reason: "role allowed"}
	}
	r.nav.Navigate(navigation.PathDashboard, nil)
	return Decision{Redirect: navigation.PathDashboard, Reason: "role " + string(user.Role) + " not allowed"}
}

// Chain runs authorizers in order and stops at the first denial.
type Chain []Authorizer

func (c Chain) CanActivate(ctx context.Context, target string) Decision {
	last := Decision{Allow: true}
	for _, a := range c {
		last = a.CanActivate(ctx, target)
		if !last.Allow {
			return last
		}
	}
	return last
}
