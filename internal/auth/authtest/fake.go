// Package authtest provides an in-memory auth.Provider for tests.
package authtest

import (
	"context"
	"sync"

	"github.com/nhle/gtdxp-os/internal/auth"
)

// Fake is a scriptable auth.Provider. Each call is recorded by name; the
// matching Err field, when set, is returned instead of a result.
type Fake struct {
	mu    sync.Mutex
	calls []string

	Session *auth.Session
	User    *auth.User

	SignInErr  error
	SignUpErr  error
	VerifyErr  error
	ResetErr   error
	UpdateErr  error
	RefreshErr error
	SignOutErr error
	GetUserErr error

	// GetUserErrs, when non-empty, is consumed one error per GetUser call
	// before falling back to GetUserErr.
	GetUserErrs []error
}

// NewFake returns a provider that signs everyone in as email.
func NewFake(email string) *Fake {
	user := &auth.User{ID: "user-1", Email: email}
	return &Fake{
		User: user,
		Session: &auth.Session{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			User:         *user,
		},
	}
}

// Calls returns the names of the calls made so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *Fake) SignInWithPassword(_ context.Context, _, _ string) (*auth.Session, error) {
	f.record("SignInWithPassword")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	return f.Session, nil
}

func (f *Fake) SignUp(_ context.Context, _, _, _ string) (*auth.User, error) {
	f.record("SignUp")
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	return f.User, nil
}

func (f *Fake) VerifyOTP(_ context.Context, _ string, _ auth.OTPType) (*auth.Session, error) {
	f.record("VerifyOTP")
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	return f.Session, nil
}

func (f *Fake) ResetPasswordForEmail(_ context.Context, _, _ string) error {
	f.record("ResetPasswordForEmail")
	return f.ResetErr
}

func (f *Fake) UpdatePassword(_ context.Context, _, _ string) (*auth.User, error) {
	f.record("UpdatePassword")
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	return f.User, nil
}

func (f *Fake) RefreshSession(_ context.Context, _ string) (*auth.Session, error) {
	f.record("RefreshSession")
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	return f.Session, nil
}

func (f *Fake) SignOut(_ context.Context, _ string) error {
	f.record("SignOut")
	return f.SignOutErr
}

func (f *Fake) GetUser(_ context.Context, _ string) (*auth.User, error) {
	f.record("GetUser")
	f.mu.Lock()
	if len(f.GetUserErrs) > 0 {
		err := f.GetUserErrs[0]
		f.GetUserErrs = f.GetUserErrs[1:]
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return f.User, nil
	}
	f.mu.Unlock()
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	return f.User, nil
}

var _ auth.Provider = (*Fake)(nil)
