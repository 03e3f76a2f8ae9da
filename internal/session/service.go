package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Service owns the in-memory session and keeps it in step with its Store.
// All reads hand out copies; only Login, Logout and UpdateTokens mutate.
type Service struct {
	mu      sync.RWMutex
	current Session
	store   *Store
	logger  zerolog.Logger
}

// NewService initialises the session from whatever the store holds
func NewService(store *Store, logger zerolog.Logger) *Service {
	svc := &Service{
		current: store.Load(),
		store:   store,
		logger:  logger.With().Str("component", "session").Logger(),
	}

	if svc.current.IsAuthenticated() {
		svc.logger.Debug().
			Int64("user_id", svc.current.User.ID).
			Str("role", string(svc.current.User.Role)).
			Msg("Restored session")
	}

	return svc
}

// Snapshot returns a copy of the current session
func (s *Service) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// User returns a copy of the logged-in user, or nil
func (s *Service) User() *UserProfile {
	return s.Snapshot().User
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated()
}

func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

func (s *Service) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

// Login replaces the session wholesale with the one returned by the server
func (s *Service) Login(user UserProfile, token, refreshToken string) error {
	if token == "" || refreshToken == "" {
		return ErrEmptyToken
	}

	next := Session{User: &user, AccessToken: token, RefreshToken: refreshToken}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(next); err != nil {
		return err
	}
	s.current = next

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("Logged in")
	return nil
}

// Logout destroys the session in memory and in storage
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	s.current = Session{}

	s.logger.Info().Msg("Logged out")
	return nil
}

// UpdateTokens installs a refreshed access token. An empty refresh token keeps
// the current one. The user is never touched.
func (s *Service) UpdateTokens(access, refresh string) error {
	if access == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	next := s.current
	next.AccessToken = access
	if refresh != "" {
		next.RefreshToken = refresh
	}

	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	s.current = next

	s.logger.Debug().Bool("rotated", refresh != "").Msg("Access token refreshed")
	return nil
}

// AccessTokenExpiry reads the exp claim of the access token. The token is not
// verified; the result is for display only.
func (s *Service) AccessTokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
