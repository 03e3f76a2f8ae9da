package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitdesk/transitdesk/internal/apitest"
	"github.com/transitdesk/transitdesk/internal/config"
)

type console struct {
	t   *testing.T
	api *apitest.Server
	dir string
}

// newConsole points the CLI at a stub backend with a file session in a temp
// config dir
func newConsole(t *testing.T) *console {
	t.Helper()
	dir := t.TempDir()
	api := apitest.New(t)

	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TRANSITDESK_API_URL", api.APIURL())
	t.Setenv("TRANSITDESK_SESSION_BACKEND", "file")
	t.Setenv("TRANSITDESK_SESSION_PATH", "")
	t.Setenv("TRANSITDESK_HTTP_TIMEOUT", "")
	t.Setenv("TRANSITDESK_EMAIL", "")
	t.Setenv("TRANSITDESK_PASSWORD", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	return &console{t: t, api: api, dir: dir}
}

func (c *console) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func (c *console) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *console) login(email string) {
	c.t.Helper()
	c.mustRun("login", "--email", email, "--password", apitest.DefaultPassword)
}

func TestLogin_PersistsSessionAcrossRuns(t *testing.T) {
	c := newConsole(t)

	out := c.mustRun("login", "--email", "admin@transit.test", "--password", apitest.DefaultPassword)
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "Role: ADMIN")
	assert.Contains(t, out, "Home: /admin")

	info, err := os.Stat(filepath.Join(c.dir, "transitdesk", "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A fresh process restores the session
	assert.Equal(t, "/admin\n", c.mustRun("home"))

	out = c.mustRun("whoami")
	assert.Contains(t, out, "Ada Admin (admin@transit.test)")
	assert.Contains(t, out, "Token: expires")
	assert.Contains(t, out, "/admin/vehicles")
	assert.Contains(t, out, "/admin/drivers")
	assert.NotContains(t, out, "  /driver ")
	assert.NotContains(t, out, "/driver/trips")
	assert.NotContains(t, out, "/passenger")
}

func TestLogin_NonInteractiveRequiresPassword(t *testing.T) {
	c := newConsole(t)

	_, err := c.run("login", "--email", "admin@transit.test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required in non-interactive mode")
}

func TestLogin_WrongPassword(t *testing.T) {
	c := newConsole(t)

	_, err := c.run("login", "--email", "admin@transit.test", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Equal(t, "/login\n", c.mustRun("home"))
}

func TestLogout(t *testing.T) {
	c := newConsole(t)
	c.login("driver@transit.test")

	assert.Contains(t, c.mustRun("logout"), "Logged out")
	assert.Equal(t, "/login\n", c.mustRun("home"))
	assert.Contains(t, c.mustRun("logout"), "Not logged in")

	_, err := os.Stat(filepath.Join(c.dir, "transitdesk", "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestGuardedCommands(t *testing.T) {
	c := newConsole(t)

	_, err := c.run("vehicles", "ls")
	require.Error(t, err)
	assert.Equal(t, "please run 'transitdesk login' first", err.Error())

	_, err = c.run("whoami")
	require.Error(t, err)
	assert.Equal(t, "please run 'transitdesk login' first", err.Error())
	assert.Equal(t, int64(0), c.api.BusinessHits())

	c.login("passenger@transit.test")

	_, err = c.run("vehicles", "ls")
	require.Error(t, err)
	assert.Equal(t, "not authorized for /admin/vehicles", err.Error())

	_, err = c.run("trips", "start", "30")
	require.Error(t, err)
	assert.Equal(t, "not authorized for /driver/trip-actions", err.Error())

	_, err = c.run("trips", "add", "--vehicle", "20", "--driver", "2", "--date", "2026-03-09", "--schedule", "41")
	require.Error(t, err)
	assert.Equal(t, "not authorized for /admin/trips", err.Error())

	_, err = c.run("drivers", "add", "--name", "X", "--email", "x@transit.test", "--phone", "1", "--password", "p")
	require.Error(t, err)
	assert.Equal(t, "not authorized for /admin/drivers", err.Error())
	assert.Equal(t, int64(0), c.api.BusinessHits(), "refused commands never reach the backend")
}

func TestOpen(t *testing.T) {
	c := newConsole(t)

	assert.Equal(t, "/admin -> /login (login)\n", c.mustRun("open", "/admin"))
	assert.Equal(t, "/register -> /register (allow)\n", c.mustRun("open", "/register"))

	c.login("driver@transit.test")
	assert.Equal(t, "/ -> /driver (allow)\n", c.mustRun("open", "/"))
	assert.Equal(t, "/driver/trips/ -> /driver/trips (allow)\n", c.mustRun("open", "/driver/trips/"))
	assert.Equal(t, "/admin -> /unauthorized (unauthorized)\n", c.mustRun("open", "/admin"))
	assert.Equal(t, "/nowhere -> /unauthorized (unauthorized)\n", c.mustRun("open", "/nowhere"))
}

func TestRegister(t *testing.T) {
	c := newConsole(t)

	out := c.mustRun("register",
		"--name", "Riley Rider",
		"--email", "riley@transit.test",
		"--password", "hunter22",
		"--phone", "555-0199",
		"--role", "passenger",
	)
	assert.Contains(t, out, "Registered riley@transit.test as PASSENGER")
	assert.Equal(t, "/login\n", c.mustRun("home"), "register does not sign in")

	c.mustRun("login", "--email", "riley@transit.test", "--password", "hunter22")
	assert.Equal(t, "/passenger\n", c.mustRun("home"))

	_, err := c.run("register", "--name", "X", "--email", "x@transit.test", "--password", "p", "--phone", "1", "--role", "pilot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role 'pilot'")

	_, err = c.run("register", "--email", "y@transit.test")
	require.Error(t, err)
	assert.Equal(t, "--name is required in non-interactive mode", err.Error())
}

func TestAdminWorkflow(t *testing.T) {
	c := newConsole(t)
	c.login("admin@transit.test")

	out := c.mustRun("vehicles", "ls")
	assert.Contains(t, out, "BUS-001")
	assert.Contains(t, out, "VAN-002")

	out = c.mustRun("vehicles", "add", "--number", "TRAM-9", "--type", "TRAM", "--capacity", "80")
	assert.Contains(t, out, "Vehicle TRAM-9 added")

	_, err := c.run("vehicles", "add", "--number", "TRAM-10", "--type", "TRAM")
	require.Error(t, err, "capacity is validated locally")

	_, err = c.run("vehicles", "rm", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id 'abc'")

	assert.Contains(t, c.mustRun("vehicles", "rm", "20"), "Vehicle 20 removed")
	assert.NotContains(t, c.mustRun("vehicles", "ls"), "BUS-001")

	assert.Contains(t, c.mustRun("drivers", "ls"), "driver@transit.test")
	assert.Contains(t, c.mustRun("routes", "ls"), "Airport Express")
	assert.Contains(t, c.mustRun("schedules", "ls", "--route", "10"), "17:30")
	assert.Contains(t, c.mustRun("trips", "ls"), "Dan Driver")

	_, err = c.run("schedules", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--route is required")

	out = c.mustRun("drivers", "add", "--name", "Nia Night", "--email", "nia@transit.test", "--phone", "555-0142", "--password", "nightshift")
	assert.Contains(t, out, "Driver nia@transit.test added")
	assert.Contains(t, c.mustRun("drivers", "ls"), "Nia Night")

	_, err = c.run("drivers", "add", "--name", "Quiet", "--email", "quiet@transit.test", "--phone", "1")
	require.Error(t, err)
	assert.Equal(t, "--password is required in non-interactive mode", err.Error())

	out = c.mustRun("trips", "add", "--vehicle", "21", "--driver", "2", "--date", "2026-03-09", "--schedule", "41")
	assert.Contains(t, out, "Airport Express on 2026-03-09 17:30-18:15")

	out = c.mustRun("trips", "add", "--vehicle", "21", "--driver", "2", "--date", "2026-03-10", "--route", "10", "--start", "10:00", "--end", "10:40")
	assert.Contains(t, out, "Airport Express on 2026-03-10 10:00-10:40")
	assert.Contains(t, c.mustRun("trips", "ls"), "2026-03-10")

	_, err = c.run("trips", "add", "--vehicle", "21", "--driver", "2", "--date", "2026-03-10", "--route", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --schedule or all of --route, --start and --end are required")

	_, err = c.run("trips", "add", "--vehicle", "21", "--driver", "2", "--date", "2026-03-10", "--schedule", "41", "--route", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--schedule cannot be combined")
}

func TestDriverWorkflow(t *testing.T) {
	c := newConsole(t)
	c.login("driver@transit.test")

	out := c.mustRun("trips", "mine")
	assert.Contains(t, out, "SCHEDULED")

	assert.Contains(t, c.mustRun("trips", "start", "30"), "Trip 30 started")
	assert.Contains(t, c.mustRun("trips", "end", "30"), "Trip 30 completed")
	assert.Contains(t, c.mustRun("trips", "mine"), "COMPLETED")

	_, err := c.run("trips", "end", "30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 409")
}

func TestPassengerWorkflow(t *testing.T) {
	c := newConsole(t)
	c.login("passenger@transit.test")

	assert.Contains(t, c.mustRun("bookings"), "No bookings yet")

	out := c.mustRun("trips", "search", "--from", "Central", "--to", "Airport", "--date", "2026-03-02")
	assert.Contains(t, out, "Airport Express")
	assert.Contains(t, out, "transitdesk book")

	out = c.mustRun("book", "30")
	assert.Contains(t, out, "Seat booked")
	assert.Contains(t, out, "Fare:   4.50")

	assert.Contains(t, c.mustRun("bookings"), "BOOKED")
}

func TestExpiredTokenRefreshedAndPersisted(t *testing.T) {
	c := newConsole(t)
	c.login("admin@transit.test")

	before, err := os.ReadFile(filepath.Join(c.dir, "transitdesk", "session.json"))
	require.NoError(t, err)

	c.api.ExpireAccessTokens()
	assert.Contains(t, c.mustRun("routes", "ls"), "Airport Express")
	assert.Equal(t, int64(1), c.api.RefreshCalls())

	after, err := os.ReadFile(filepath.Join(c.dir, "transitdesk", "session.json"))
	require.NoError(t, err)
	assert.NotEqual(t, string(before), string(after))

	// The next run uses the refreshed token directly
	c.mustRun("routes", "ls")
	assert.Equal(t, int64(1), c.api.RefreshCalls())
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	c := newConsole(t)
	c.login("admin@transit.test")

	c.api.SetRejectRefresh(true)
	c.api.ExpireAccessTokens()

	_, err := c.run("routes", "ls")
	require.Error(t, err)
	assert.Equal(t, "/login\n", c.mustRun("home"))
}

func TestEphemeralAndBackendFlags(t *testing.T) {
	c := newConsole(t)

	c.mustRun("--ephemeral", "login", "--email", "admin@transit.test", "--password", apitest.DefaultPassword)
	assert.Equal(t, "/login\n", c.mustRun("home"), "ephemeral sessions are not persisted")

	c.mustRun("--session-backend", "sqlite", "login", "--email", "driver@transit.test", "--password", apitest.DefaultPassword)
	assert.Equal(t, "/driver\n", c.mustRun("--session-backend", "sqlite", "home"))
	assert.FileExists(t, filepath.Join(c.dir, "transitdesk", "session.db"))

	_, err := c.run("--session-backend", "cookie", "home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session backend")
}

func TestFlagsOverrideInvalidEnv(t *testing.T) {
	c := newConsole(t)
	t.Setenv("TRANSITDESK_SESSION_BACKEND", "bogus")

	_, err := c.run("home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session backend 'bogus'")

	assert.Equal(t, "/login\n", c.mustRun("--session-backend", "memory", "home"))
	assert.Equal(t, "/login\n", c.mustRun("--ephemeral", "home"))

	t.Setenv("TRANSITDESK_SESSION_BACKEND", "file")
	t.Setenv("TRANSITDESK_API_URL", "not a url")
	assert.Equal(t, "/login\n", c.mustRun("--api-url", c.api.APIURL(), "home"))

	t.Setenv("TRANSITDESK_API_URL", c.api.APIURL())
	t.Setenv("TRANSITDESK_HTTP_TIMEOUT", "soon")
	_, err = c.run("home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid TRANSITDESK_HTTP_TIMEOUT")
}

func TestConfigInit(t *testing.T) {
	c := newConsole(t)
	path := filepath.Join(c.dir, "transitdesk", "config.yaml")

	out := c.mustRun("--session-backend", "sqlite", "config", "init")
	assert.Contains(t, out, "Config written to "+path)
	assert.Contains(t, out, "Session: sqlite")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.api.APIURL(), cfg.API.URL)
	assert.Equal(t, config.BackendSQLite, cfg.Session.Backend)

	_, err = c.run("config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	c.mustRun("config", "init", "--force")
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Session.Backend)

	// The written file feeds later runs
	custom := filepath.Join(c.dir, "custom.yaml")
	c.mustRun("--config", custom, "--session-backend", "memory", "config", "init")
	t.Setenv("TRANSITDESK_SESSION_BACKEND", "")
	c.mustRun("--config", custom, "login", "--email", "admin@transit.test", "--password", apitest.DefaultPassword)
	assert.Equal(t, "/login\n", c.mustRun("--config", custom, "home"), "memory backend from the file")
}

func TestVersion(t *testing.T) {
	c := newConsole(t)
	assert.Equal(t, "transitdesk version dev\n", c.mustRun("version"))
}
