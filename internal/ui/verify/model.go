// Package verify shows the result of checking an emailed confirmation or
// verification link.
package verify

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

// Status is the progress of the check.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

// Kind selects the wording of the screen.
type Kind int

const (
	KindConfirm Kind = iota
	KindVerify
)

type wording struct {
	loading, success, invalid, failed string
}

var words = map[Kind]wording{
	KindConfirm: {
		loading: "Confirming your email...",
		success: "Email confirmed successfully! Redirecting to login...",
		invalid: "Invalid confirmation link",
		failed:  "An error occurred while confirming your email",
	},
	KindVerify: {
		loading: "Verifying your email...",
		success: "Email verified successfully! Redirecting to login...",
		invalid: "Invalid verification link",
		failed:  "An error occurred while verifying your email",
	},
}

type resultMsg struct {
	err error
}

type redirectMsg struct{}

// Model is the confirmation status screen.
type Model struct {
	env     *ui.Env
	kind    Kind
	cb      auth.Callback
	valid   bool
	status  Status
	message string
	spinner spinner.Model
	delay   time.Duration

	width, height int
}

// New creates the screen for a parsed link. err is the parse error, if the
// link could not be read.
func New(env *ui.Env, kind Kind, cb auth.Callback, err error, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		env:     env,
		kind:    kind,
		cb:      cb,
		valid:   err == nil && cb.TokenHash != "" && cb.Type != "",
		status:  StatusLoading,
		message: words[kind].loading,
		spinner: sp,
		delay:   ui.RedirectDelay,
		width:   width,
		height:  height,
	}
	if !m.valid {
		m.status = StatusError
		m.message = words[kind].invalid
	}
	return m
}

// Init starts the provider check.
func (m Model) Init() tea.Cmd {
	if !m.valid {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.check())
}

// Status returns the current status and message.
func (m Model) Status() (Status, string) {
	return m.status, m.message
}

func (m Model) check() tea.Cmd {
	provider := m.env.Provider()
	cb := m.cb
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		_, err := provider.VerifyOTP(ctx, cb.TokenHash, cb.Type)
		return resultMsg{err: err}
	}
}

// Update handles messages for the screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case spinner.TickMsg:
		if m.status == StatusLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case resultMsg:
		if msg.err != nil {
			m.status = StatusError
			m.message = auth.Message(msg.err, words[m.kind].failed)
			return m, nil
		}
		m.status = StatusSuccess
		m.message = words[m.kind].success
		return m, tea.Tick(m.delay, func(time.Time) tea.Msg { return redirectMsg{} })

	case redirectMsg:
		return m, toLogin

	case tea.KeyMsg:
		if m.status == StatusError &&
			(key.Matches(msg, m.env.Keys.Select) || key.Matches(msg, m.env.Keys.Back)) {
			return m, toLogin
		}
	}
	return m, nil
}

func toLogin() tea.Msg {
	return ui.NavigateMsg{To: ui.ScreenLogin}
}

// View renders the screen.
func (m Model) View() string {
	s := theme.ByID(m.env.Config.Display.Theme).Styles(m.env.Config.Display.Light)

	var icon string
	switch m.status {
	case StatusLoading:
		icon = m.spinner.View()
	case StatusSuccess:
		icon = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("✓")
	case StatusError:
		icon = lipgloss.NewStyle().Foreground(theme.ColorRed).Render("✗")
	}

	parts := []string{icon + " " + s.Text.Render(m.message)}
	if m.status == StatusError {
		parts = append(parts, "", s.Button.Render("Return to Login"))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		s.Form.Render(lipgloss.JoinVertical(lipgloss.Center, parts...)))
}
