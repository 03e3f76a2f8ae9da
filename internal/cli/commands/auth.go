package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/cli/client"
	"github.com/transitdesk/transitdesk/internal/cli/prompt"
	"github.com/transitdesk/transitdesk/internal/guard"
	"github.com/transitdesk/transitdesk/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Transit backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TRANSITDESK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TRANSITDESK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, app *App, email, password string) error {
	// Environment variables are useful for scripted use
	if email == "" {
		email = os.Getenv("TRANSITDESK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("TRANSITDESK_PASSWORD")
	}

	if email == "" {
		if !prompt.IsInteractive() {
			return fmt.Errorf("email is required (use --email flag or TRANSITDESK_EMAIL env var)")
		}
		value, err := prompt.Text("Email", true)
		if err != nil {
			return err
		}
		email = value
	}

	if password == "" {
		value, err := prompt.Password(app.Out, "Password")
		if errors.Is(err, prompt.ErrNonInteractive) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or TRANSITDESK_PASSWORD env var)")
		}
		if err != nil {
			return err
		}
		password = value
	}

	fmt.Fprintf(app.Out, "Logging in to %s...\n", app.Config.API.URL)

	user, err := app.Client.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "✓ Login successful!")
	fmt.Fprintf(app.Out, "  User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintf(app.Out, "  Role: %s\n", user.Role)
	fmt.Fprintf(app.Out, "  Home: %s\n", guard.LandingPath(app.Sessions.Snapshot()))
	return nil
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(app *App) *cobra.Command {
	var req client.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create a new account on the Transit backend.

Missing fields are prompted for when running in a terminal. Registering does
not sign you in; run 'transitdesk login' afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" {
				parsed, ok := session.ParseRole(role)
				if !ok {
					return fmt.Errorf("invalid role '%s', must be one of: ADMIN, DRIVER, PASSENGER", role)
				}
				req.Role = parsed
			}
			return runRegister(cmd, app, req)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&role, "role", "", "Account role: ADMIN, DRIVER or PASSENGER (will prompt if not provided)")

	return cmd
}

func runRegister(cmd *cobra.Command, app *App, req client.RegisterRequest) error {
	var err error
	if req.Name == "" {
		if req.Name, err = prompt.Text("Name", true); err != nil {
			return missingField("name", err)
		}
	}
	if req.Email == "" {
		if req.Email, err = prompt.Text("Email", true); err != nil {
			return missingField("email", err)
		}
	}
	if req.Phone == "" {
		if req.Phone, err = prompt.Text("Phone", true); err != nil {
			return missingField("phone", err)
		}
	}
	if req.Role == "" {
		if req.Role, err = prompt.SelectRole(); err != nil {
			return missingField("role", err)
		}
	}
	if req.Password == "" {
		if req.Password, err = prompt.Password(app.Out, "Password"); err != nil {
			return missingField("password", err)
		}
	}

	if err := app.Client.Register(cmd.Context(), req); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "✓ Registered %s as %s\n", req.Email, req.Role)
	fmt.Fprintln(app.Out, "\nSign in with: transitdesk login --email "+req.Email)
	return nil
}

func missingField(name string, err error) error {
	if errors.Is(err, prompt.ErrNonInteractive) {
		return fmt.Errorf("--%s is required in non-interactive mode", name)
	}
	return err
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Sessions.IsAuthenticated() {
				fmt.Fprintln(app.Out, "Not logged in.")
				return nil
			}
			if err := app.Client.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(app.Out, "✓ Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and the views available to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot := app.Sessions.Snapshot()
			user := snapshot.User

			fmt.Fprintf(app.Out, "User:  %s (%s)\n", user.Name, user.Email)
			fmt.Fprintf(app.Out, "Role:  %s\n", user.Role)
			fmt.Fprintf(app.Out, "Home:  %s\n", guard.LandingPath(snapshot))

			if expiry, ok := app.Sessions.AccessTokenExpiry(); ok {
				fmt.Fprintf(app.Out, "Token: expires %s (%s)\n",
					expiry.Local().Format(time.RFC3339), describeExpiry(time.Until(expiry)))
			}

			allowed := guard.RoutesFor(user.Role)
			if len(allowed) == 0 {
				fmt.Fprintln(app.Out, "\nNo views available for this role.")
				return nil
			}

			fmt.Fprintln(app.Out, "\nViews:")
			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			for _, r := range allowed {
				fmt.Fprintf(w, "  %s\t%s\n", r.Path, r.Title)
			}
			return w.Flush()
		},
	}
	return guarded(cmd, AnyAuthenticated)
}

func describeExpiry(d time.Duration) string {
	if d <= 0 {
		return "expired, will refresh on next request"
	}
	return "in " + d.Round(time.Second).String()
}
