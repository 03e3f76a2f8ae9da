package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/cli/client"
	"github.com/transitdesk/transitdesk/internal/config"
	"github.com/transitdesk/transitdesk/internal/gateway"
	"github.com/transitdesk/transitdesk/internal/guard"
	"github.com/transitdesk/transitdesk/internal/session"
)

const (
	// RouteAnnotation holds the console route a command opens
	RouteAnnotation = "transitdesk/route"

	// AnyAuthenticated as a route value admits every logged-in user
	AnyAuthenticated = "*"

	// StandaloneAnnotation marks commands that run on configuration alone,
	// without reading the config file or opening a session
	StandaloneAnnotation = "transitdesk/standalone"
)

// App carries the wiring every command runs against. The root command fills
// it in before any RunE is invoked.
type App struct {
	Config     *config.Config
	ConfigPath string // --config value, empty for the default location
	Logger     zerolog.Logger
	Sessions   *session.Service
	Client     *client.Client

	Out io.Writer
	Err io.Writer

	closers []func() error
}

// Open builds the session store, session service, gateway and typed client
// for cfg
func (a *App) Open(cfg *config.Config, logger zerolog.Logger) error {
	backendName := cfg.Session.Backend

	backend, err := a.openBackend(cfg, backendName)
	if err != nil {
		return err
	}

	store := session.NewStore(backend, logger)
	sessions := session.NewService(store, logger)

	gw := gateway.New(cfg.API.URL, sessions,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithLogger(logger),
		gateway.WithLogoutOnRefreshRejected(cfg.API.LogoutOnRefreshRejected),
	)

	a.Config = cfg
	a.Logger = logger
	a.Sessions = sessions
	a.Client = client.New(gw, sessions, logger)

	logger.Debug().
		Str("api_url", cfg.API.URL).
		Str("session_backend", backendName).
		Bool("authenticated", sessions.IsAuthenticated()).
		Msg("Console initialized")
	return nil
}

func (a *App) openBackend(cfg *config.Config, name string) (session.Backend, error) {
	switch name {
	case config.BackendMemory:
		return session.NewMemoryBackend(), nil
	case config.BackendKeyring:
		return session.NewKeyringBackend(cfg.APIHost()), nil
	case config.BackendFile:
		path, err := cfg.SessionPath()
		if err != nil {
			return nil, err
		}
		return session.NewFileBackend(path), nil
	case config.BackendSQLite:
		path, err := cfg.SessionPath()
		if err != nil {
			return nil, err
		}
		backend, err := session.OpenSQLiteBackend(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, backend.Close)
		return backend, nil
	default:
		return nil, fmt.Errorf("invalid session backend '%s'", name)
	}
}

// Close releases backend resources
func (a *App) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// Authorize checks the command's route annotation against the current
// session. Commands without an annotation are public.
func (a *App) Authorize(cmd *cobra.Command) error {
	route, ok := cmd.Annotations[RouteAnnotation]
	if !ok {
		return nil
	}

	snapshot := a.Sessions.Snapshot()

	var decision guard.Decision
	if route == AnyAuthenticated {
		decision = guard.Decide(snapshot)
	} else {
		_, decision = guard.Navigate(snapshot, route)
	}

	switch decision {
	case guard.Allow:
		return nil
	case guard.Login:
		return fmt.Errorf("please run 'transitdesk login' first")
	default:
		a.Logger.Debug().Str("route", route).Str("role", string(snapshot.Role())).Msg("Route refused")
		return fmt.Errorf("not authorized for %s", route)
	}
}

// guarded tags cmd with the route it opens
func guarded(cmd *cobra.Command, route string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[RouteAnnotation] = route
	return cmd
}
