package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "transitdesk-cli"

// KeyringBackend stores the session record as one entry in the OS
// keychain/credential manager, keyed by API host
type KeyringBackend struct {
	key string
}

// NewKeyringBackend creates a backend for the given API host
func NewKeyringBackend(apiHost string) *KeyringBackend {
	return &KeyringBackend{key: getKeyringKey(apiHost)}
}

// getKeyringKey returns a unique key for storing sessions per API host
func getKeyringKey(apiHost string) string {
	return fmt.Sprintf("session-%s", apiHost)
}

func (k *KeyringBackend) Read() ([]byte, error) {
	secret, err := keyring.Get(keyringService, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to load session from keyring: %w", err)
	}
	return []byte(secret), nil
}

func (k *KeyringBackend) Write(data []byte) error {
	if err := keyring.Set(keyringService, k.key, string(data)); err != nil {
		return fmt.Errorf("failed to save session to keyring: %w", err)
	}
	return nil
}

func (k *KeyringBackend) Delete() error {
	if err := keyring.Delete(keyringService, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session from keyring: %w", err)
	}
	return nil
}
