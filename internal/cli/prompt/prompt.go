package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/transitdesk/transitdesk/internal/session"
)

// ErrNonInteractive is returned when input is needed but stdin is not a terminal
var ErrNonInteractive = errors.New("input required in non-interactive mode")

// IsInteractive reports whether stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Password reads a password without echo. out receives the label.
func Password(out io.Writer, label string) (string, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	fmt.Fprintf(out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// Text asks for a single line of free text
func Text(label string, required bool) (string, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	p := promptui.Prompt{Label: label}
	if required {
		p.Validate = func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		}
	}

	value, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s prompt cancelled: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}

type roleOption struct {
	Label string
	Role  session.Role
}

// SelectRole shows an interactive role picker for registration
func SelectRole() (session.Role, error) {
	if !IsInteractive() {
		return "", ErrNonInteractive
	}

	roles := session.Roles()
	options := make([]roleOption, len(roles))
	for i, role := range roles {
		options[i] = roleOption{Label: roleLabel(role), Role: role}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	selector := promptui.Select{
		Label:     "Select a role",
		Items:     options,
		Templates: templates,
		Size:      len(options),
	}

	index, _, err := selector.Run()
	if err != nil {
		return "", fmt.Errorf("role selection cancelled: %w", err)
	}

	return options[index].Role, nil
}

func roleLabel(role session.Role) string {
	switch role {
	case session.RoleAdmin:
		return "Admin (fleet, routes and trips)"
	case session.RoleDriver:
		return "Driver (assigned trips)"
	case session.RolePassenger:
		return "Passenger (search and book)"
	default:
		return string(role)
	}
}
