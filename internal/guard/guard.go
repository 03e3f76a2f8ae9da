// Package guard decides whether a console view may be opened for the current
// session, and where a session lands when it opens the root.
package guard

import (
	"slices"

	"github.com/transitdesk/transitdesk/internal/session"
)

// Decision is the outcome of checking a guarded route
type Decision int

const (
	Login Decision = iota
	Unauthorized
	Allow
)

func (d Decision) String() string {
	switch d {
	case Login:
		return "login"
	case Unauthorized:
		return "unauthorized"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide gates a view that requires one of the given roles. An empty role
// list admits any authenticated user.
func Decide(s session.Session, required ...session.Role) Decision {
	if s.User == nil {
		return Login
	}
	if len(required) > 0 && !slices.Contains(required, s.User.Role) {
		return Unauthorized
	}
	return Allow
}

// LandingPath resolves the root route for the session's role
func LandingPath(s session.Session) string {
	if s.User == nil {
		return LoginPath
	}

	switch s.User.Role {
	case session.RoleAdmin:
		return AdminPath
	case session.RoleDriver:
		return DriverPath
	case session.RolePassenger:
		return PassengerPath
	default:
		return UnauthorizedPath
	}
}
