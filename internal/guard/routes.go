package guard

import (
	"strings"

	"github.com/transitdesk/transitdesk/internal/session"
)

const (
	RootPath         = "/"
	LoginPath        = "/login"
	RegisterPath     = "/register"
	UnauthorizedPath = "/unauthorized"

	AdminPath             = "/admin"
	AdminVehiclesPath     = "/admin/vehicles"
	AdminDriversPath      = "/admin/drivers"
	AdminRoutesPath       = "/admin/routes"
	AdminTripsPath        = "/admin/trips"
	AdminSchedulesPath    = "/admin/schedules"
	DriverPath            = "/driver"
	DriverTripsPath       = "/driver/trips"
	DriverTripActionsPath = "/driver/trip-actions"
	PassengerPath         = "/passenger"
	PassengerSearchPath   = "/passenger/search"
	PassengerBookingsPath = "/passenger/bookings"
)

// Route is a guarded view and the roles allowed to open it
type Route struct {
	Path  string
	Title string
	Roles []session.Role
}

var publicPaths = map[string]bool{
	LoginPath:        true,
	RegisterPath:     true,
	UnauthorizedPath: true,
}

var routes = []Route{
	{Path: AdminPath, Title: "Dashboard", Roles: []session.Role{session.RoleAdmin}},
	{Path: AdminVehiclesPath, Title: "Manage Vehicles", Roles: []session.Role{session.RoleAdmin}},
	{Path: AdminDriversPath, Title: "Manage Drivers", Roles: []session.Role{session.RoleAdmin}},
	{Path: AdminRoutesPath, Title: "Manage Routes", Roles: []session.Role{session.RoleAdmin}},
	{Path: AdminTripsPath, Title: "Manage Trips", Roles: []session.Role{session.RoleAdmin}},
	{Path: AdminSchedulesPath, Title: "Manage Schedules", Roles: []session.Role{session.RoleAdmin}},

	{Path: DriverPath, Title: "Dashboard", Roles: []session.Role{session.RoleDriver}},
	{Path: DriverTripsPath, Title: "My Trips", Roles: []session.Role{session.RoleDriver}},
	{Path: DriverTripActionsPath, Title: "Start/End Trip", Roles: []session.Role{session.RoleDriver}},

	{Path: PassengerPath, Title: "Dashboard", Roles: []session.Role{session.RolePassenger}},
	{Path: PassengerSearchPath, Title: "Search Trips", Roles: []session.Role{session.RolePassenger}},
	{Path: PassengerBookingsPath, Title: "My Bookings", Roles: []session.Role{session.RolePassenger}},
}

// Lookup finds the guarded route registered for path
func Lookup(path string) (Route, bool) {
	path = cleanPath(path)
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Navigate resolves a navigation to path. It returns the path that should be
// rendered and the decision that led there. Unknown paths fail closed.
func Navigate(s session.Session, path string) (string, Decision) {
	path = cleanPath(path)

	if path == RootPath {
		return LandingPath(s), Allow
	}
	if publicPaths[path] {
		return path, Allow
	}

	route, ok := Lookup(path)
	if !ok {
		return UnauthorizedPath, Unauthorized
	}

	switch decision := Decide(s, route.Roles...); decision {
	case Login:
		return LoginPath, decision
	case Unauthorized:
		return UnauthorizedPath, decision
	default:
		return route.Path, decision
	}
}

// RoutesFor lists the guarded routes a role may open, in menu order.
// Unknown roles get nothing.
func RoutesFor(role session.Role) []Route {
	if !role.Known() {
		return nil
	}

	var allowed []Route
	for _, r := range routes {
		if Decide(session.Session{User: &session.UserProfile{Role: role}}, r.Roles...) == Allow {
			allowed = append(allowed, r)
		}
	}
	return allowed
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return RootPath
	}
	return path
}
