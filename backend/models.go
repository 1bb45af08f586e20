package backend

import (
	"errors"

	"github.com/jrsteele09/go-hr-session/users"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the self sign-up payload. The password confirmation is checked client side
// and never sent.
type Registration struct {
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Password        string     `json:"password"`
	PasswordConfirm string     `json:"-"`
	Role            users.Role `json:"role,omitempty"`
}

// Validate mirrors the sign-up form rules.
func (r Registration) Validate() error {
	switch {
	case len(r.Username) < 3:
		return errors.New("username must be at least 3 characters")
	case r.Email == "":
		return errors.New("email is required")
	case r.FirstName == "" || r.LastName == "":
		return errors.New("first and last name are required")
	case len(r.Password) < 8:
		return errors.New("password must be at least 8 characters")
	case r.Password != r.PasswordConfirm:
		return errors.New("passwords do not match")
	case r.Role != "" && !r.Role.Valid():
		return errors.New("unknown role")
	}
	return nil
}

// LoginResponse is returned by both login and register.
type LoginResponse struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    users.Profile `json:"user"`
}

// RefreshRequest is the body of POST /login/refresh/ and /login/logout/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries a new access token and, when the server rotates, a new refresh token.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
