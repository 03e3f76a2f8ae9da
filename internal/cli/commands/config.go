package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/config"
)

// NewConfigCmd creates the config command
func NewConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the console configuration file",
	}

	cmd.AddCommand(newConfigInitCmd(app))
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file from the current settings",
		Long: `Write a config file holding the built-in defaults with environment
variables and flags applied, e.g.

  transitdesk --api-url https://transit.example.com/api/v1 config init

An existing file is kept unless --force is given.`,
		Annotations: map[string]string{StandaloneAnnotation: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(app, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runConfigInit(app *App, force bool) error {
	path := app.ConfigPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.Save(path, app.Config); err != nil {
		return err
	}

	app.Logger.Debug().Str("path", path).Msg("Config written")
	fmt.Fprintf(app.Out, "✓ Config written to %s\n", path)
	fmt.Fprintf(app.Out, "  API:     %s\n", app.Config.API.URL)
	fmt.Fprintf(app.Out, "  Session: %s\n", app.Config.Session.Backend)
	return nil
}
