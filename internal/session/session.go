package session

import (
	"errors"
	"strings"
)

var (
	ErrTornSession      = errors.New("session tokens and user must be set and cleared together")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyToken       = errors.New("access and refresh tokens are required")
)

// Role is the account role assigned by the backend
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDriver    Role = "DRIVER"
	RolePassenger Role = "PASSENGER"
)

// ParseRole maps a raw role string onto the known roles.
// The second return value is false for anything outside the closed set.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleDriver:
		return RoleDriver, true
	case RolePassenger:
		return RolePassenger, true
	default:
		return Role(raw), false
	}
}

// Known reports whether r is one of the roles the console understands
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleDriver, RolePassenger:
		return true
	}
	return false
}

// Roles lists the known roles in display order
func Roles() []Role {
	return []Role{RoleAdmin, RoleDriver, RolePassenger}
}

// UserProfile is the identity returned by the login endpoint
type UserProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Phone string `json:"phone"`
}

// Session is the client-held authentication state
type Session struct {
	User         *UserProfile `json:"user"`
	AccessToken  string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// IsAuthenticated reports whether an access token is held
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// Validate checks that the session is either fully populated or fully empty
func (s Session) Validate() error {
	if (s.AccessToken == "") != (s.RefreshToken == "") {
		return ErrTornSession
	}
	if (s.User == nil) != (s.AccessToken == "") {
		return ErrTornSession
	}
	return nil
}

// Role returns the user's role, or "" when nobody is logged in
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// clone copies the user so callers never share the service's pointer
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
