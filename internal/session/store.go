package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoRecord is returned by a Backend when nothing has been persisted yet
var ErrNoRecord = errors.New("no session record")

// Backend persists the encoded session record as a single opaque value.
// Write must replace the previous value atomically.
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Delete() error
}

// record is the on-disk shape. User and both tokens travel together so a
// reader can never see a token without its user.
type record struct {
	User         *UserProfile `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	SavedAt      time.Time    `json:"savedAt"`
}

// Store is the durable holder of the current session
type Store struct {
	backend Backend
	logger  zerolog.Logger
}

// NewStore creates a store over the given backend
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "session_store").Logger(),
	}
}

// Load returns the persisted session. Missing, unreadable, corrupt or partial
// records all load as the empty session.
func (s *Store) Load() Session {
	data, err := s.backend.Read()
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			s.logger.Warn().Err(err).Msg("Failed to read session, treating as logged out")
		}
		return Session{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding corrupt session record")
		return Session{}
	}

	sess := Session{
		User:         rec.User,
		AccessToken:  rec.Token,
		RefreshToken: rec.RefreshToken,
	}
	if err := sess.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding partial session record")
		return Session{}
	}

	return sess
}

// Save persists the whole session in one write. Saving an empty session
// clears the store.
func (s *Store) Save(sess Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if !sess.IsAuthenticated() {
		return s.Clear()
	}

	data, err := json.Marshal(record{
		User:         sess.User,
		Token:        sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.backend.Write(data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the persisted session
func (s *Store) Clear() error {
	if err := s.backend.Delete(); err != nil && !errors.Is(err, ErrNoRecord) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
