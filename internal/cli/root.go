package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/cli/commands"
	"github.com/transitdesk/transitdesk/internal/config"
	"github.com/transitdesk/transitdesk/internal/logger"
)

var version = "dev" // Will be set during build

type rootFlags struct {
	configPath     string
	apiURL         string
	logLevel       string
	sessionBackend string
	ephemeral      bool
}

func newRootCmd(app *commands.App) *cobra.Command {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "transitdesk",
		Short: "TransitDesk - Transit management console",
		Long: `TransitDesk CLI - Manage fleets, trips and bookings from the terminal.

Sign in once with 'transitdesk login'; the session is kept between runs and
access tokens are renewed automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Version needs no session
			if cmd.Name() == "version" {
				return nil
			}

			_, standalone := cmd.Annotations[commands.StandaloneAnnotation]

			cfg, err := loadConfig(cmd, flags, !standalone)
			if err != nil {
				return err
			}

			log := logger.Init(cfg.Logging.Level, cfg.Logging.Format, app.Err)
			app.ConfigPath = flags.configPath
			if standalone {
				app.Config = cfg
				app.Logger = log
				return nil
			}

			if err := app.Open(cfg, log); err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}

			return app.Authorize(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/transitdesk/config.yaml)")
	pf.StringVar(&flags.apiURL, "api-url", "", "Transit API base URL (or set TRANSITDESK_API_URL)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.sessionBackend, "session-backend", "", "Session storage: file, keyring, sqlite, memory")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "Keep the session in memory for this run only")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "transitdesk version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewConfigCmd(app))
	rootCmd.AddCommand(commands.NewLoginCmd(app))
	rootCmd.AddCommand(commands.NewRegisterCmd(app))
	rootCmd.AddCommand(commands.NewLogoutCmd(app))
	rootCmd.AddCommand(commands.NewWhoamiCmd(app))
	rootCmd.AddCommand(commands.NewHomeCmd(app))
	rootCmd.AddCommand(commands.NewOpenCmd(app))
	rootCmd.AddCommand(commands.NewVehiclesCmd(app))
	rootCmd.AddCommand(commands.NewDriversCmd(app))
	rootCmd.AddCommand(commands.NewRoutesCmd(app))
	rootCmd.AddCommand(commands.NewSchedulesCmd(app))
	rootCmd.AddCommand(commands.NewTripsCmd(app))
	rootCmd.AddCommand(commands.NewBookCmd(app))
	rootCmd.AddCommand(commands.NewBookingsCmd(app))

	return rootCmd
}

// loadConfig layers CLI flags over the config file and environment, then
// validates the result once. Without fromFile only defaults and environment
// sit under the flags.
func loadConfig(cmd *cobra.Command, flags rootFlags, fromFile bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if fromFile {
		cfg, err = config.Load(flags.configPath)
	} else {
		cfg, err = config.LoadDefaults()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.API.URL = flags.apiURL
	}
	if pf.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if pf.Changed("session-backend") {
		cfg.Session.Backend = flags.sessionBackend
	}
	if flags.ephemeral {
		cfg.Session.Backend = config.BackendMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run executes the console with args, writing command output to out and
// logs to errOut
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	app := &commands.App{Out: out, Err: errOut}
	defer app.Close()

	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	return rootCmd.ExecuteContext(ctx)
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
