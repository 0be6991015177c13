// Package credential keeps secrets (API keys, tokens, the saved session) in
// the operating system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "theora"

// Well-known credential keys.
const (
	KeyAnthropicAPIKey = "anthropic_api_key"
	KeyGeminiAPIKey    = "gemini_api_key"
	KeyRemoteToken     = "remote_token"
	KeySession         = "session"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes credentials in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the system keyring, falling back to an encrypted file under
// fileDir when no native backend is available.
func Open(fileDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("theora-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Lookup returns the value of key, or "" when it is missing or unreadable.
func (s *Store) Lookup(key string) string {
	v, err := s.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "theora " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
