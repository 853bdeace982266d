// Package auth talks to the hosted authentication provider (Supabase
// GoTrue) over its REST API. Credential storage, password reset, email
// confirmation and session issuance all happen on the provider side; this
// package only issues the calls and surfaces the provider's messages.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OTPType identifies the flow a one-time token belongs to.
type OTPType string

const (
	OTPSignup      OTPType = "signup"
	OTPInvite      OTPType = "invite"
	OTPMagicLink   OTPType = "magiclink"
	OTPRecovery    OTPType = "recovery"
	OTPEmailChange OTPType = "email_change"
	OTPEmail       OTPType = "email"
)

// User is the provider's account record.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry returns when the access token stops being valid, or the zero
// time when the provider did not say.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// Provider is the set of calls the client makes to the authentication
// backend. Every error carries a message fit to show the user as-is.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, redirectURL string) (*User, error)
	VerifyOTP(ctx context.Context, tokenHash string, otpType OTPType) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

var (
	// ErrResendTooSoon is returned when a reset email was requested too
	// recently. The provider is not contacted.
	ErrResendTooSoon = errors.New("please wait before requesting another reset email")

	// ErrInvalidLink is returned for callback links without a token or type.
	ErrInvalidLink = errors.New("invalid verification link")

	// ErrNoLink is returned when an email carries no callback link.
	ErrNoLink = errors.New("no confirmation link found in email")
)

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("authentication provider returned %d %s", e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether err (or any error in its chain) is a 401
// from the provider.
func IsUnauthorized(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr) && pErr.Status == http.StatusUnauthorized
}

// Message returns the text to show the user for err. Provider messages
// are returned verbatim; anything else falls back to fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.Message != "" {
		return pErr.Message
	}
	if errors.Is(err, ErrResendTooSoon) || errors.Is(err, ErrInvalidLink) || errors.Is(err, ErrNoLink) {
		return capitalize(err.Error())
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
