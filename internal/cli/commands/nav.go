package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/guard"
)

// NewHomeCmd creates the home command, which resolves the landing view for
// the signed-in role
func NewHomeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the landing view for the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := guard.Navigate(app.Sessions.Snapshot(), guard.RootPath)
			fmt.Fprintln(app.Out, target)
			return nil
		},
	}
}

// NewOpenCmd creates the open command
func NewOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Check whether the current session may open a view",
		Long: `Resolve a console path against the current session.

Prints the view that would be shown and the decision that led there. Unknown
paths are refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, decision := guard.Navigate(app.Sessions.Snapshot(), args[0])
			fmt.Fprintf(app.Out, "%s -> %s (%s)\n", args[0], target, decision)
			return nil
		},
	}
}
