// Package resetpw sets a new password after a recovery link.
package resetpw

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

// Phase is where the screen is in the flow.
type Phase int

const (
	PhaseVerifying Phase = iota
	PhaseForm
	PhaseSaving
	PhaseDone
)

// Messages shown to the user.
const (
	MsgUpdateFailed  = "Failed to update password"
	MsgInvalidLink   = "Invalid or expired reset link"
	MsgPasswordReset = "Password updated successfully! Redirecting..."
)

type recoveredMsg struct {
	session *auth.Session
	err     error
}

type updatedMsg struct {
	err error
}

type redirectMsg struct{}

type fields struct {
	password string
	confirm  string
}

// Model is the new-password screen.
type Model struct {
	env     *ui.Env
	cb      *auth.Callback
	phase   Phase
	form    *huh.Form
	fields  *fields
	err     string
	spinner spinner.Model
	delay   time.Duration

	width, height int
}

// New creates the screen. With a recovery callback the link is verified
// first; without one the current session is used.
func New(env *ui.Env, cb *auth.Callback, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		env:     env,
		cb:      cb,
		fields:  &fields{},
		spinner: sp,
		delay:   ui.RedirectDelay,
		width:   width,
		height:  height,
	}
	if cb != nil {
		m.phase = PhaseVerifying
	} else {
		m.phase = PhaseForm
		m.form = m.buildForm()
	}
	return m
}

// Init starts verification or the form.
func (m Model) Init() tea.Cmd {
	if m.phase == PhaseVerifying {
		return tea.Batch(m.spinner.Tick, m.checkLink())
	}
	return m.form.Init()
}

// Phase returns the current phase.
func (m Model) Phase() Phase {
	return m.phase
}

// Err returns the error currently displayed, if any.
func (m Model) Err() string {
	return m.err
}

func (m Model) checkLink() tea.Cmd {
	provider := m.env.Provider()
	cb := *m.cb
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		s, err := provider.VerifyOTP(ctx, cb.TokenHash, cb.Type)
		return recoveredMsg{session: s, err: err}
	}
}

func (m Model) update(password string) tea.Cmd {
	provider := m.env.Provider()
	sess := m.env.Session
	return func() tea.Msg {
		token := sess.AccessToken()
		if token == "" {
			return updatedMsg{err: session.ErrNotSignedIn}
		}
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		_, err := provider.UpdatePassword(ctx, token, password)
		return updatedMsg{err: err}
	}
}

func (m Model) buildForm() *huh.Form {
	f := m.fields
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("New Password").
			EchoMode(huh.EchoModePassword).
			Value(&f.password).
			Validate(ui.ValidatePassword),
		huh.NewInput().
			Title("Confirm New Password").
			EchoMode(huh.EchoModePassword).
			Value(&f.confirm).
			Validate(ui.ValidateConfirmation(&f.password)),
	)).WithWidth(min(max(m.width-10, 24), 48)).WithShowHelp(false)
}

// Update handles messages for the screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.phase == PhaseVerifying || m.phase == PhaseSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case recoveredMsg:
		if msg.err != nil {
			m.env.Toasts.Error(auth.Message(msg.err, MsgInvalidLink), "")
			return m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenLogin} }
		}
		if err := m.env.Session.Set(msg.session); err != nil {
			m.env.Log().Warn("storing recovery session", "error", err)
		}
		m.phase = PhaseForm
		m.form = m.buildForm()
		return m, m.form.Init()

	case updatedMsg:
		if msg.err != nil {
			m.phase = PhaseForm
			m.err = auth.Message(msg.err, MsgUpdateFailed)
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.phase = PhaseDone
		return m, tea.Tick(m.delay, func(time.Time) tea.Msg { return redirectMsg{} })

	case redirectMsg:
		return m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenSystem} }

	case tea.KeyMsg:
		if m.phase != PhaseForm {
			return m, nil
		}
		if key.Matches(msg, m.env.Keys.Back) {
			return m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenLogin} }
		}
	}

	if m.phase != PhaseForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.phase = PhaseSaving
		m.err = ""
		return m, tea.Batch(m.spinner.Tick, m.update(m.fields.password))
	}
	return m, cmd
}

// View renders the screen.
func (m Model) View() string {
	s := theme.ByID(m.env.Config.Display.Theme).Styles(m.env.Config.Display.Light)

	parts := []string{s.Title.Render("Reset Password"), ""}
	switch m.phase {
	case PhaseVerifying:
		parts = append(parts, m.spinner.View()+" "+s.Muted.Render("Checking your reset link..."))
	case PhaseForm:
		if m.err != "" {
			parts = append(parts, s.Alert.Render(m.err), "")
		}
		parts = append(parts, m.form.View(), "", s.Help.Render("enter reset password • esc cancel"))
	case PhaseSaving:
		parts = append(parts, m.spinner.View()+" "+s.Muted.Render("Resetting..."))
	case PhaseDone:
		parts = append(parts,
			lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("✓ ")+s.Text.Render(MsgPasswordReset))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		s.Form.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
}
