// Package credential keeps secrets (the provider's anon key and the
// signed-in session) in the system keyring.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/gtdxp-os/internal/auth"
)

const serviceName = "gtdxp"

// Keys under which secrets are stored.
const (
	KeyAnonKey = "auth-anon-key"
	KeySession = "session"
)

// ErrNoSession is returned when no session has been saved.
var ErrNoSession = errors.New("no saved session")

// Vault reads and writes credentials in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// Open returns a vault over the system keyring, falling back to an
// encrypted file when no native backend is available.
func Open() (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/gtdxp/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("gtdxp-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key string, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. A missing key is not an error.
func (v *Vault) Delete(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// SaveSession stores the session as JSON.
func (v *Vault) SaveSession(s *auth.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return v.Set(KeySession, string(data))
}

// LoadSession returns the saved session or ErrNoSession.
func (v *Vault) LoadSession() (*auth.Session, error) {
	raw, err := v.Get(KeySession)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var s auth.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

// ClearSession forgets the saved session.
func (v *Vault) ClearSession() error {
	return v.Delete(KeySession)
}
