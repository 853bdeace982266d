// Package ui holds what the screens share: layout helpers, form field
// validation and the messages screens use to talk to the root model.
package ui

import (
	"log/slog"
	"time"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/keys"
	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/toast"
)

// RequestTimeout bounds every provider call made from a screen.
const RequestTimeout = 20 * time.Second

// RedirectDelay is how long success messages stay up before a screen moves on.
const RedirectDelay = 2 * time.Second

// Env is what every screen gets from the root model.
type Env struct {
	Config     *model.AppConfig
	ConfigPath string
	Session    *session.Manager
	// Watcher re-validates the session in the background. Optional.
	Watcher    *session.Watcher
	Toasts     *toast.Queue
	Store      store.Store
	Keys       *keys.KeyMap
	Logger     *slog.Logger
}

// Provider returns the authentication provider behind the session.
func (e *Env) Provider() auth.Provider {
	return e.Session.Provider()
}

// Log returns the logger, or one that discards when none is set.
func (e *Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Screen identifies a top-level view.
type Screen int

const (
	ScreenLanding Screen = iota
	ScreenLogin
	ScreenSystem
	ScreenThemes
	ScreenVerify
	ScreenResetPassword
)

// String returns the command-palette name of the screen.
func (s Screen) String() string {
	switch s {
	case ScreenLanding:
		return "landing"
	case ScreenLogin:
		return "login"
	case ScreenSystem:
		return "system"
	case ScreenThemes:
		return "themes"
	case ScreenVerify:
		return "verify"
	case ScreenResetPassword:
		return "reset-password"
	default:
		return "unknown"
	}
}

// NavigateMsg asks the root model to switch screens.
type NavigateMsg struct {
	To Screen
	// SignUp opens the login screen on the sign-up form.
	SignUp bool
}

// SignedInMsg reports that a new session was issued.
type SignedInMsg struct {
	Session *auth.Session
}

// SignedOutMsg reports that the session is gone.
type SignedOutMsg struct {
	Err error
}

// ThemeChangedMsg reports a new theme or light/dark selection.
type ThemeChangedMsg struct {
	ThemeID string
	Light   bool
}

// QuitMsg asks the root model to exit.
type QuitMsg struct{}
