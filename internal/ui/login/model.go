// Package login is the themed sign-in screen. It also hosts sign-up,
// password reset requests and verification of emailed links.
package login

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/callback"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

// Mode is the panel the screen is showing.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignUp
	ModeReset
	ModeResetSent
	ModeVerifying
)

// Messages shown to the user.
const (
	MsgSignInFailed = "Failed to sign in"
	MsgSignUpFailed = "Failed to sign up"
	MsgResetFailed  = "Failed to send reset email"
	MsgVerifyFailed = "Verification failed"
	MsgCheckEmail   = "Check your email for the confirmation link"
)

type tickMsg time.Time

type signInResultMsg struct {
	session *auth.Session
	err     error
}

type signUpResultMsg struct {
	err error
}

type resetResultMsg struct {
	email string
	err   error
}

type verifyResultMsg struct {
	session *auth.Session
	err     error
}

// fields holds the values huh writes into. It lives behind a pointer so
// copies of Model share it.
type fields struct {
	email    string
	password string
	confirm  string
}

// Model is the login screen.
type Model struct {
	env  *ui.Env
	mode Mode

	form    *huh.Form
	fields  *fields
	loading bool
	err     string

	resetEmail string

	themeIdx int
	light    bool
	styles   theme.Styles

	now     func() time.Time
	clock   time.Time
	spinner spinner.Model

	width, height int
}

// New creates the login screen. signUp opens the sign-up form.
func New(env *ui.Env, signUp bool, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		env:      env,
		fields:   &fields{},
		themeIdx: theme.Index(env.Config.Display.Theme),
		light:    env.Config.Display.Light,
		now:      time.Now,
		spinner:  sp,
		width:    width,
		height:   height,
	}
	m.clock = m.now()
	m.restyle()

	m.mode = ModeLogin
	if signUp {
		m.mode = ModeSignUp
	}
	m.form = m.buildForm()
	return m
}

// Init starts the clock and the active form.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick()}
	if m.form != nil {
		cmds = append(cmds, m.form.Init())
	}
	return tea.Batch(cmds...)
}

// Mode returns the active panel.
func (m Model) Mode() Mode {
	return m.mode
}

// Err returns the error currently displayed, if any.
func (m Model) Err() string {
	return m.err
}

// Theme returns the theme being shown.
func (m Model) Theme() theme.Theme {
	return theme.All[m.themeIdx]
}

// StartVerify switches to the verifying panel and checks the link with the
// provider.
func (m Model) StartVerify(cb auth.Callback) (Model, tea.Cmd) {
	m.mode = ModeVerifying
	m.form = nil
	m.err = ""
	return m, tea.Batch(m.spinner.Tick, m.verify(cb))
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) restyle() {
	m.styles = theme.All[m.themeIdx].Styles(m.light)
}

// Update handles messages for the login screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		m.clock = m.now()
		return m, m.tick()

	case spinner.TickMsg:
		if m.mode == ModeVerifying || m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case callback.Received:
		return m.StartVerify(msg.Callback)

	case signInResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = auth.Message(msg.err, MsgSignInFailed)
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		session := msg.session
		return m, func() tea.Msg { return ui.SignedInMsg{Session: session} }

	case signUpResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = auth.Message(msg.err, MsgSignUpFailed)
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.env.Toasts.Success(MsgCheckEmail, "")
		*m.fields = fields{}
		return m.switchMode(ModeLogin)

	case resetResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = auth.Message(msg.err, MsgResetFailed)
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.resetEmail = msg.email
		m.mode = ModeResetSent
		m.form = nil
		return m, nil

	case verifyResultMsg:
		if msg.err != nil {
			next, cmd := m.switchMode(ModeLogin)
			next.err = auth.Message(msg.err, MsgVerifyFailed)
			return next, cmd
		}
		session := msg.session
		return m, func() tea.Msg { return ui.SignedInMsg{Session: session} }

	case tea.KeyMsg:
		if handled, next, cmd := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	return m.updateForm(msg)
}

// handleGlobalKeys processes the theme and system buttons, which work in
// every panel.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	k := m.env.Keys
	inForm := m.form != nil

	switch {
	case key.Matches(msg, k.NextTheme) && (!inForm || msg.Type == tea.KeyCtrlRight):
		m.themeIdx = theme.Next(m.themeIdx)
		m.restyle()
		return true, m, nil

	case key.Matches(msg, k.PrevTheme) && (!inForm || msg.Type == tea.KeyCtrlLeft):
		m.themeIdx = theme.Prev(m.themeIdx)
		m.restyle()
		return true, m, nil

	case key.Matches(msg, k.ToggleLight):
		m.light = !m.light
		m.restyle()
		changed := ui.ThemeChangedMsg{ThemeID: theme.All[m.themeIdx].ID, Light: m.light}
		return true, m, func() tea.Msg { return changed }

	case key.Matches(msg, k.Shutdown):
		return true, m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenLanding} }

	case key.Matches(msg, k.Restart):
		fresh := New(m.env, false, m.width, m.height)
		fresh.themeIdx = m.themeIdx
		fresh.light = m.light
		fresh.restyle()
		return true, fresh, fresh.Init()
	}

	if m.loading || m.mode == ModeVerifying {
		return true, m, nil
	}

	switch m.mode {
	case ModeLogin:
		switch msg.String() {
		case "ctrl+u":
			next, cmd := m.switchMode(ModeSignUp)
			return true, next, cmd
		case "ctrl+f":
			next, cmd := m.switchMode(ModeReset)
			return true, next, cmd
		}
	case ModeSignUp, ModeReset:
		if key.Matches(msg, k.Back) {
			next, cmd := m.switchMode(ModeLogin)
			return true, next, cmd
		}
	case ModeResetSent:
		if key.Matches(msg, k.Select) || key.Matches(msg, k.Back) {
			next, cmd := m.switchMode(ModeLogin)
			return true, next, cmd
		}
		return true, m, nil
	}
	return false, m, nil
}

func (m Model) switchMode(mode Mode) (Model, tea.Cmd) {
	if mode != m.mode {
		m.err = ""
	}
	m.mode = mode
	m.loading = false
	m.form = m.buildForm()
	if m.form == nil {
		return m, nil
	}
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.loading {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m.switchMode(ModeLogin)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	m.loading = true
	m.err = ""
	email := strings.TrimSpace(m.fields.email)
	password := m.fields.password

	switch m.mode {
	case ModeLogin:
		return m, tea.Batch(m.spinner.Tick, m.signIn(email, password))
	case ModeSignUp:
		return m, tea.Batch(m.spinner.Tick, m.signUp(email, password))
	case ModeReset:
		return m, tea.Batch(m.spinner.Tick, m.requestReset(email))
	}
	m.loading = false
	return m, nil
}

func (m Model) signIn(email, password string) tea.Cmd {
	provider := m.env.Provider()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		s, err := provider.SignInWithPassword(ctx, email, password)
		return signInResultMsg{session: s, err: err}
	}
}

func (m Model) signUp(email, password string) tea.Cmd {
	provider := m.env.Provider()
	redirect := m.env.Config.CallbackURL(callback.RouteCallback)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		_, err := provider.SignUp(ctx, email, password, redirect)
		return signUpResultMsg{err: err}
	}
}

func (m Model) requestReset(email string) tea.Cmd {
	provider := m.env.Provider()
	redirect := m.env.Config.CallbackURL(callback.RouteResetPassword)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		err := provider.ResetPasswordForEmail(ctx, email, redirect)
		return resetResultMsg{email: email, err: err}
	}
}

func (m Model) verify(cb auth.Callback) tea.Cmd {
	provider := m.env.Provider()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		s, err := provider.VerifyOTP(ctx, cb.TokenHash, cb.Type)
		return verifyResultMsg{session: s, err: err}
	}
}

// buildForm returns the form for the current mode, or nil for panels
// without one.
func (m Model) buildForm() *huh.Form {
	f := m.fields
	email := huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Value(&f.email).
		Validate(ui.ValidateEmail)
	password := huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(&f.password).
		Validate(ui.ValidatePassword)

	var group *huh.Group
	switch m.mode {
	case ModeLogin:
		group = huh.NewGroup(email, password)
	case ModeSignUp:
		confirm := huh.NewInput().
			Title("Confirm Password").
			EchoMode(huh.EchoModePassword).
			Value(&f.confirm).
			Validate(ui.ValidateConfirmation(&f.password))
		group = huh.NewGroup(email, password, confirm)
	case ModeReset:
		group = huh.NewGroup(email)
	default:
		return nil
	}

	return huh.NewForm(group).
		WithWidth(m.formWidth()).
		WithShowHelp(false)
}

// View renders the login screen.
func (m Model) View() string {
	s := m.styles
	clock := m.renderClock()

	var panel string
	switch m.mode {
	case ModeLogin:
		panel = m.viewForm("Login", "enter login • ctrl+u create account • ctrl+f forgot password")
	case ModeSignUp:
		panel = m.viewForm("Create Account", "enter sign up • esc back to login")
	case ModeReset:
		panel = m.viewForm("Reset Password", "enter send reset link • esc back to login")
	case ModeResetSent:
		panel = s.Form.Render(lipgloss.JoinVertical(lipgloss.Center,
			s.Title.Render("Check Your Email"),
			"",
			s.Muted.Width(m.formWidth()).Render(
				"We've sent a password reset link to "+s.Text.Render(m.resetEmail)+
					". Please check your inbox and follow the instructions."),
			"",
			s.Button.Render("Back to Login"),
		))
	case ModeVerifying:
		panel = s.Form.Render(lipgloss.JoinVertical(lipgloss.Center,
			m.spinner.View()+" "+s.Title.Render("Verifying Your Email"),
			"",
			s.Muted.Render("Please wait while we verify your email address..."),
		))
	}

	system := s.Help.Render(
		"ctrl+q shutdown • ctrl+r restart • ctrl+t light/dark • [ ] theme: " + theme.All[m.themeIdx].Name,
	)

	body := lipgloss.JoinVertical(lipgloss.Center, clock, "", panel, "", system)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m Model) viewForm(title, hints string) string {
	s := m.styles
	parts := []string{s.Title.Render(title), ""}
	if m.err != "" {
		parts = append(parts, s.Alert.Width(m.formWidth()).Render(m.err), "")
	}
	if m.loading {
		parts = append(parts, m.spinner.View()+" "+s.Muted.Render(loadingText(m.mode)))
	} else if m.form != nil {
		parts = append(parts, m.form.View())
	}
	parts = append(parts, "", s.Help.Render(hints))
	return s.Form.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func loadingText(mode Mode) string {
	switch mode {
	case ModeSignUp:
		return "Creating account..."
	case ModeReset:
		return "Sending..."
	default:
		return "Signing in..."
	}
}

func (m Model) renderClock() string {
	layout := "03:04 PM"
	if m.env.Config.Display.Clock24 {
		layout = "15:04"
	}
	t := m.styles.Clock.Render(m.clock.Format(layout))
	if theme.All[m.themeIdx].Mono {
		t = m.styles.Clock.Render(spaced(m.clock.Format(layout)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, t, m.styles.Date.Render(m.clock.Format("Monday, January 2")))
}

// spaced stretches text for the pixel-style clock.
func spaced(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-10, 24), 48)
}
