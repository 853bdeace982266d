package app

import (
	"github.com/nhle/gtdxp-os/internal/ui"
	"github.com/nhle/gtdxp-os/internal/ui/login"
)

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.overlay {
	case OverlayHelp:
		return "? close help | esc back"
	case OverlayCommand:
		return "enter execute | tab complete | esc back"
	}

	switch m.screen {
	case ui.ScreenLanding:
		return "l login | s sign up | q quit | ? help | : command"
	case ui.ScreenLogin:
		switch m.login.Mode() {
		case login.ModeLogin:
			return "enter sign in | ctrl+u sign up | ctrl+f forgot password | ctrl+←/→ theme | ctrl+t light"
		case login.ModeSignUp, login.ModeReset:
			return "enter submit | esc back | ctrl+←/→ theme | ctrl+t light"
		case login.ModeResetSent:
			return "enter back to login"
		default:
			return "ctrl+q shutdown | ctrl+r restart"
		}
	case ui.ScreenSystem:
		return "←/→ select | enter open | o sign out | ? help | : command"
	case ui.ScreenThemes:
		return "↑/↓ move | enter select | a apply | esc back"
	case ui.ScreenVerify:
		return "enter back to login"
	case ui.ScreenResetPassword:
		return "enter reset password | esc cancel"
	}
	return "? help | : command"
}
