package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/transitdesk/transitdesk/internal/gateway"
	"github.com/transitdesk/transitdesk/internal/session"
)

var validate = validator.New()

// Client represents the typed Transit API used by the console views
type Client struct {
	gw       *gateway.Gateway
	sessions *session.Service
	logger   zerolog.Logger
}

// New creates a new API client on top of the gateway
func New(gw *gateway.Gateway, sessions *session.Service, logger zerolog.Logger) *Client {
	return &Client{
		gw:       gw,
		sessions: sessions,
		logger:   logger.With().Str("component", "client").Logger(),
	}
}

// Sessions exposes the session service the client logs in to
func (c *Client) Sessions() *session.Service {
	return c.sessions
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token        string              `json:"token"`
	RefreshToken string              `json:"refreshToken"`
	User         session.UserProfile `json:"user"`
}

// Login authenticates the user and starts a new session
func (c *Client) Login(ctx context.Context, email, password string) (*session.UserProfile, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}

	var resp LoginResponse
	if err := c.gw.Do(ctx, http.MethodPost, gateway.LoginPath, req, &resp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if !resp.User.Role.Known() {
		c.logger.Warn().Str("role", string(resp.User.Role)).Msg("Server returned an unknown role")
	}

	if err := c.sessions.Login(resp.User, resp.Token, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	user := resp.User
	return &user, nil
}

// RegisterRequest represents the account registration body
type RegisterRequest struct {
	Name     string       `json:"name" validate:"required"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required"`
	Role     session.Role `json:"role" validate:"required,oneof=ADMIN DRIVER PASSENGER"`
	Phone    string       `json:"phone" validate:"required"`
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid registration: %w", err)
	}

	if err := c.gw.Do(ctx, http.MethodPost, gateway.RegisterPath, req, nil); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Logout ends the local session
func (c *Client) Logout() error {
	return c.sessions.Logout()
}

// currentUserID returns the logged-in user's id for user-scoped endpoints
func (c *Client) currentUserID() (int64, error) {
	user := c.sessions.User()
	if user == nil {
		return 0, session.ErrNotAuthenticated
	}
	return user.ID, nil
}
