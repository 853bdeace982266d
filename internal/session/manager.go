// Package session tracks the signed-in user's tokens for the lifetime of
// the client and keeps them valid.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/credential"
)

// ErrNotSignedIn is returned by operations that need a session when there
// is none.
var ErrNotSignedIn = errors.New("not signed in")

// Persister stores the session between runs. credential.Vault is the
// production implementation.
type Persister interface {
	SaveSession(s *auth.Session) error
	LoadSession() (*auth.Session, error)
	ClearSession() error
}

// Claims are the access-token claims the client reads. The signature is
// never checked here; the provider does that on every call.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of an access token without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}
	return claims, nil
}

// Manager owns the current session.
type Manager struct {
	mu        sync.RWMutex
	provider  auth.Provider
	persister Persister
	current   *auth.Session
	now       func() time.Time
}

// NewManager creates a manager. persister may be nil to keep the session
// in memory only.
func NewManager(provider auth.Provider, persister Persister) *Manager {
	return &Manager{
		provider:  provider,
		persister: persister,
		now:       time.Now,
	}
}

// Provider returns the authentication provider the manager talks to.
func (m *Manager) Provider() auth.Provider {
	return m.provider
}

// Current returns the active session, or nil.
func (m *Manager) Current() *auth.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SignedIn reports whether a session is held.
func (m *Manager) SignedIn() bool {
	return m.Current() != nil
}

// AccessToken returns the current access token, or "".
func (m *Manager) AccessToken() string {
	if s := m.Current(); s != nil {
		return s.AccessToken
	}
	return ""
}

// Email returns the signed-in address from the session, falling back to
// the token's email claim.
func (m *Manager) Email() string {
	s := m.Current()
	if s == nil {
		return ""
	}
	if s.User.Email != "" {
		return s.User.Email
	}
	if claims, err := ParseClaims(s.AccessToken); err == nil {
		return claims.Email
	}
	return ""
}

// Expired reports whether the access token has passed its expiry. The
// token's exp claim wins over the provider's expires_at field.
func (m *Manager) Expired() bool {
	s := m.Current()
	if s == nil {
		return true
	}

	expiry := s.Expiry()
	if claims, err := ParseClaims(s.AccessToken); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiry = exp.Time
		}
	}
	if expiry.IsZero() {
		return false
	}
	return !m.now().Before(expiry)
}

// Set makes s the current session and persists it.
func (m *Manager) Set(s *auth.Session) error {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if m.persister == nil || s == nil {
		return nil
	}
	if err := m.persister.SaveSession(s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear drops the current session and its persisted copy.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if m.persister == nil {
		return nil
	}
	if err := m.persister.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Restore loads the persisted session, refreshing it when the access
// token has expired. It returns ErrNotSignedIn when nothing usable exists.
func (m *Manager) Restore(ctx context.Context) (*auth.Session, error) {
	if m.persister == nil {
		return nil, ErrNotSignedIn
	}

	s, err := m.persister.LoadSession()
	if errors.Is(err, credential.ErrNoSession) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if !m.Expired() {
		return s, nil
	}
	if s.RefreshToken == "" {
		_ = m.Clear()
		return nil, ErrNotSignedIn
	}

	refreshed, err := m.provider.RefreshSession(ctx, s.RefreshToken)
	if err != nil {
		_ = m.Clear()
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	if err := m.Set(refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Validate confirms the session with the provider. A rejected access
// token is refreshed once before giving up.
func (m *Manager) Validate(ctx context.Context) (*auth.User, error) {
	s := m.Current()
	if s == nil {
		return nil, ErrNotSignedIn
	}

	user, err := m.provider.GetUser(ctx, s.AccessToken)
	if err == nil {
		return user, nil
	}
	if !auth.IsUnauthorized(err) || s.RefreshToken == "" {
		return nil, err
	}

	refreshed, refreshErr := m.provider.RefreshSession(ctx, s.RefreshToken)
	if refreshErr != nil {
		return nil, err
	}
	if err := m.Set(refreshed); err != nil {
		return nil, err
	}
	return m.provider.GetUser(ctx, refreshed.AccessToken)
}

// SignOut revokes the session with the provider and forgets it locally.
// The local copy is dropped even when the provider call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	token := m.AccessToken()
	var signOutErr error
	if token != "" {
		signOutErr = m.provider.SignOut(ctx, token)
	}
	if err := m.Clear(); err != nil {
		return err
	}
	return signOutErr
}
