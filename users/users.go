package users

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Role is the portal role attached to a user account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleHRManager Role = "hr_manager"
	RoleRecruiter Role = "recruiter"
	RoleManager   Role = "manager"
	RoleEmployee  Role = "employee"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleHRManager, RoleRecruiter, RoleManager, RoleEmployee}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// ParseRole accepts the backend's role identifiers, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a closed set of roles allowed through a check.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allowed reports whether role is a member of allowed.
func Allowed(role Role, allowed RoleSet) bool {
	_, ok := allowed[role]
	return ok
}

// Profile is the user record returned by the backend on login and by /users/custom-users/me/.
type Profile struct {
	ID             int     `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	FullName       string  `json:"full_name,omitempty"`
	Role           Role    `json:"role"`
	RoleDisplay    string  `json:"role_display,omitempty"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Employee       *int    `json:"employee,omitempty"`
	EmployeeName   string  `json:"employee_name,omitempty"`
	IsActive       bool    `json:"is_active"`
	IsStaff        bool    `json:"is_staff"`
	IsSuperuser    bool    `json:"is_superuser"`
	LastLogin      *string `json:"last_login,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// DisplayName prefers the backend's full name, then first/last, then the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return p.Username
}

// CanAccess is the role guard rule: staff accounts pass every role check.
func (p *Profile) CanAccess(allowed RoleSet) bool {
	if p == nil {
		return false
	}
	return p.IsStaff || Allowed(p.Role, allowed)
}

// Update is a partial profile change for PATCH /users/custom-users/me/.
type Update struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}
