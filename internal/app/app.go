package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/callback"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
	"github.com/nhle/gtdxp-os/internal/ui/command"
	helpview "github.com/nhle/gtdxp-os/internal/ui/help"
	"github.com/nhle/gtdxp-os/internal/ui/landing"
	"github.com/nhle/gtdxp-os/internal/ui/login"
	"github.com/nhle/gtdxp-os/internal/ui/resetpw"
	"github.com/nhle/gtdxp-os/internal/ui/system"
	"github.com/nhle/gtdxp-os/internal/ui/themes"
	"github.com/nhle/gtdxp-os/internal/ui/toasts"
	"github.com/nhle/gtdxp-os/internal/ui/verify"
)

// MsgSessionExpired is shown when the provider stops accepting the session.
const MsgSessionExpired = "Session expired. Please sign in again."

// Commands offered by the command palette.
var Commands = []string{
	"login", "signup", "landing", "docs", "system", "themes",
	"check", "signout", "toast", "dismiss", "quit",
}

// Overlay is drawn over the active screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayCommand
)

// Options configures the root model.
type Options struct {
	Env *ui.Env

	// Callbacks delivers links opened in the browser. Optional.
	Callbacks *callback.Server

	// Watcher re-validates the session in the background. Optional. It is
	// also shared with the screens through Env.
	Watcher *session.Watcher

	// Link, when set, is routed as soon as the program starts.
	Link *callback.Received

	// Start is the first screen. System falls back to login without a
	// session.
	Start ui.Screen
}

type themeSavedMsg struct {
	err error
}

// Model is the root Bubble Tea model. It owns the active screen, routes
// navigation between screens and draws the toast overlay on top.
type Model struct {
	env       *ui.Env
	callbacks *callback.Server
	watcher   *session.Watcher
	link      *callback.Received

	layout  ui.Layout
	ready   bool
	screen  ui.Screen
	overlay Overlay

	landing landing.Model
	login   login.Model
	system  system.Model
	themes  themes.Model
	verify  verify.Model
	resetpw resetpw.Model

	helpView    helpview.Model
	commandView command.Model
	toasts      *toasts.Model
}

// New creates the root model.
func New(opts Options) Model {
	env := opts.Env
	if opts.Watcher != nil {
		env.Watcher = opts.Watcher
	}
	maxVisible := env.Config.Toast.MaxVisible

	m := Model{
		env:         env,
		callbacks:   opts.Callbacks,
		watcher:     opts.Watcher,
		link:        opts.Link,
		layout:      ui.NewLayout(80, 24),
		helpView:    helpview.New(env.Keys, Commands, 80, 24),
		commandView: command.New(80, 24, Commands...),
		toasts:      toasts.New(env.Toasts, maxVisible),
	}
	m.screen = m.resolve(opts.Start)
	m.build(m.screen, false)
	return m
}

// Screen returns the active screen.
func (m Model) Screen() ui.Screen {
	return m.screen
}

// Overlay returns the overlay currently shown.
func (m Model) Overlay() Overlay {
	return m.overlay
}

// Init starts the screen, the listeners and routes a start-up link.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.screenInit(), m.toasts.WaitForUpdate()}
	if m.callbacks != nil {
		cmds = append(cmds, m.callbacks.WaitForCallback())
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Start())
	}
	if m.link != nil {
		link := *m.link
		cmds = append(cmds, func() tea.Msg { return startLinkMsg(link) })
	}
	return tea.Batch(cmds...)
}

// startLinkMsg is a link given on the command line. It is routed like a
// callback but does not re-arm the listener.
type startLinkMsg callback.Received

// Update handles messages and dispatches to the active screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		h := m.layout.ContentHeight()
		m.helpView.SetSize(msg.Width, h)
		m.commandView.SetSize(msg.Width, h)
		if m.screen == ui.ScreenLanding {
			m.landing.SetSize(msg.Width, h)
			return m, nil
		}
		return m.updateScreen(tea.WindowSizeMsg{Width: msg.Width, Height: h})

	case toasts.UpdatedMsg:
		return m, m.toasts.Update(msg)

	case ui.NavigateMsg:
		return m.navigate(msg.To, msg.SignUp)

	case ui.SignedInMsg:
		if err := m.env.Session.Set(msg.Session); err != nil {
			m.env.Log().Warn("persisting session", "error", err)
		}
		m.env.Log().Info("signed in", "email", m.env.Session.Email())
		return m.navigate(ui.ScreenSystem, false)

	case ui.SignedOutMsg:
		return m.signedOut(msg.Err)

	case ui.ThemeChangedMsg:
		m.env.Config.Display.Theme = msg.ThemeID
		m.env.Config.Display.Light = msg.Light
		next, cmd := m.updateScreen(msg)
		return next, tea.Batch(cmd, m.saveTheme(msg))

	case themeSavedMsg:
		if msg.err != nil {
			m.env.Log().Warn("saving theme preference", "error", msg.err)
		}
		return m, nil

	case ui.QuitMsg:
		return m.quit()

	case session.CheckResultMsg:
		var wait tea.Cmd
		if m.watcher != nil {
			wait = m.watcher.WaitForNextResult()
		}
		if msg.Expired && m.env.Session.SignedIn() {
			next, cmd := m.signedOut(msg.Err)
			return next, tea.Batch(cmd, wait)
		}
		if msg.Err != nil {
			m.env.Log().Warn("session check failed", "error", msg.Err)
		}
		return m, wait

	case callback.Received:
		next, cmd := m.route(msg)
		if m.callbacks == nil {
			return next, cmd
		}
		return next, tea.Batch(cmd, m.callbacks.WaitForCallback())

	case startLinkMsg:
		return m.route(callback.Received(msg))

	case command.CommandMsg:
		m.overlay = OverlayNone
		return m.execute(msg)

	case command.CancelMsg:
		m.overlay = OverlayNone
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKeys(msg); handled {
			return next, cmd
		}
	}

	return m.updateScreen(msg)
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	k := m.env.Keys

	if key.Matches(msg, k.Quit) {
		next, cmd := m.quit()
		return next.(Model), cmd, true
	}

	switch m.overlay {
	case OverlayHelp:
		if key.Matches(msg, k.Help) || key.Matches(msg, k.Back) {
			m.overlay = OverlayNone
		}
		return m, nil, true
	case OverlayCommand:
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd, true
	}

	if key.Matches(msg, k.DismissToast) {
		m.env.Toasts.Clear()
		return m, nil, true
	}

	// Typing into a form must not open overlays.
	if m.typing() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, k.Help):
		m.overlay = OverlayHelp
		return m, nil, true
	case key.Matches(msg, k.Command):
		m.overlay = OverlayCommand
		return m, m.commandView.Focus(), true
	}
	return m, nil, false
}

// typing reports whether the active screen has a text field focused.
func (m Model) typing() bool {
	switch m.screen {
	case ui.ScreenLogin:
		mode := m.login.Mode()
		return mode == login.ModeLogin || mode == login.ModeSignUp || mode == login.ModeReset
	case ui.ScreenResetPassword:
		return m.resetpw.Phase() == resetpw.PhaseForm
	}
	return false
}

// resolve applies the session requirement of a screen.
func (m Model) resolve(to ui.Screen) ui.Screen {
	switch to {
	case ui.ScreenSystem, ui.ScreenThemes:
		if !m.env.Session.SignedIn() {
			return ui.ScreenLogin
		}
	case ui.ScreenResetPassword:
		if !m.env.Session.SignedIn() {
			return ui.ScreenLogin
		}
	case ui.ScreenVerify:
		// Only reachable through a link.
		return ui.ScreenLogin
	}
	return to
}

// build replaces the model of screen s with a fresh one.
func (m *Model) build(s ui.Screen, signUp bool) {
	w, h := m.layout.Width, m.layout.ContentHeight()
	switch s {
	case ui.ScreenLanding:
		m.landing = landing.New(m.env, w, h)
	case ui.ScreenLogin:
		m.login = login.New(m.env, signUp, w, h)
	case ui.ScreenSystem:
		m.system = system.New(m.env, w, h)
	case ui.ScreenThemes:
		m.themes = themes.New(m.env, w, h)
	case ui.ScreenResetPassword:
		m.resetpw = resetpw.New(m.env, nil, w, h)
	}
}

func (m Model) navigate(to ui.Screen, signUp bool) (tea.Model, tea.Cmd) {
	m.overlay = OverlayNone
	m.screen = m.resolve(to)
	m.build(m.screen, signUp)
	return m, m.screenInit()
}

// route opens the screen that handles a callback link.
func (m Model) route(r callback.Received) (tea.Model, tea.Cmd) {
	m.overlay = OverlayNone
	w, h := m.layout.Width, m.layout.ContentHeight()
	m.env.Log().Info("routing callback link", "route", r.Route, "type", r.Callback.Type)

	switch {
	case r.Route == callback.RouteResetPassword || r.Callback.Type == auth.OTPRecovery:
		cb := r.Callback
		m.screen = ui.ScreenResetPassword
		m.resetpw = resetpw.New(m.env, &cb, w, h)
		return m, m.resetpw.Init()

	case r.Route == callback.RouteConfirm:
		m.screen = ui.ScreenVerify
		m.verify = verify.New(m.env, verify.KindConfirm, r.Callback, nil, w, h)
		return m, m.verify.Init()

	case r.Route == callback.RouteVerify:
		m.screen = ui.ScreenVerify
		m.verify = verify.New(m.env, verify.KindVerify, r.Callback, nil, w, h)
		return m, m.verify.Init()
	}

	m.screen = ui.ScreenLogin
	m.login = login.New(m.env, false, w, h)
	next, cmd := m.login.StartVerify(r.Callback)
	m.login = next
	return m, tea.Batch(m.login.Init(), cmd)
}

func (m Model) signedOut(err error) (tea.Model, tea.Cmd) {
	if clearErr := m.env.Session.Clear(); clearErr != nil {
		m.env.Log().Warn("clearing session", "error", clearErr)
	}
	switch {
	case err == nil:
		m.env.Log().Info("signed out")
	case auth.IsUnauthorized(err):
		m.env.Toasts.Error(MsgSessionExpired, "")
	default:
		m.env.Toasts.Error(auth.Message(err, MsgSessionExpired), "")
	}
	return m.navigate(ui.ScreenLogin, false)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.toasts.Close()
	return m, tea.Quit
}

func (m Model) saveTheme(msg ui.ThemeChangedMsg) tea.Cmd {
	s := m.env.Store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		if err := s.SetPreference(ctx, store.PrefTheme, msg.ThemeID); err != nil {
			return themeSavedMsg{err: err}
		}
		light := "false"
		if msg.Light {
			light = "true"
		}
		return themeSavedMsg{err: s.SetPreference(ctx, store.PrefLight, light)}
	}
}

// execute runs a command palette entry.
func (m Model) execute(c command.CommandMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(c.Name()) {
	case "login":
		return m.navigate(ui.ScreenLogin, false)
	case "signup":
		return m.navigate(ui.ScreenLogin, true)
	case "landing", "shutdown":
		return m.navigate(ui.ScreenLanding, false)
	case "docs":
		next, cmd := m.navigate(ui.ScreenLanding, false)
		nm := next.(Model)
		nm.landing = nm.landing.ShowDocs()
		return nm, cmd
	case "check":
		switch {
		case m.watcher == nil:
			m.env.Toasts.Warning("Session checks are off", "")
		case !m.env.Session.SignedIn():
			m.env.Toasts.Warning("Not signed in", "")
		default:
			m.watcher.CheckNow()
			m.env.Toasts.Info("Checking session", "")
		}
		return m, nil
	case "system":
		return m.navigate(ui.ScreenSystem, false)
	case "themes":
		return m.navigate(ui.ScreenThemes, false)
	case "signout", "logout":
		return m, m.signOut()
	case "toast":
		if text := c.Args(); text != "" {
			m.env.Toasts.Info(text, "")
		}
		return m, nil
	case "dismiss":
		m.env.Toasts.Clear()
		return m, nil
	case "quit", "q":
		return m.quit()
	default:
		m.env.Toasts.Warning("Unknown command", string(c))
		return m, nil
	}
}

func (m Model) signOut() tea.Cmd {
	sess := m.env.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		// The local session is cleared even when the provider call fails.
		_ = sess.SignOut(ctx)
		return ui.SignedOutMsg{}
	}
}

func (m Model) screenInit() tea.Cmd {
	switch m.screen {
	case ui.ScreenLanding:
		return m.landing.Init()
	case ui.ScreenLogin:
		return m.login.Init()
	case ui.ScreenSystem:
		return m.system.Init()
	case ui.ScreenThemes:
		return m.themes.Init()
	case ui.ScreenVerify:
		return m.verify.Init()
	case ui.ScreenResetPassword:
		return m.resetpw.Init()
	}
	return nil
}

// updateScreen dispatches the message to the active screen.
func (m Model) updateScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.screen {
	case ui.ScreenLanding:
		m.landing, cmd = m.landing.Update(msg)
	case ui.ScreenLogin:
		m.login, cmd = m.login.Update(msg)
	case ui.ScreenSystem:
		m.system, cmd = m.system.Update(msg)
	case ui.ScreenThemes:
		m.themes, cmd = m.themes.Update(msg)
	case ui.ScreenVerify:
		m.verify, cmd = m.verify.Update(msg)
	case ui.ScreenResetPassword:
		m.resetpw, cmd = m.resetpw.Update(msg)
	}

	return m, cmd
}

// View renders the header, the active screen with overlays and the
// status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	t := theme.ByID(m.env.Config.Display.Theme)
	styles := t.Styles(m.env.Config.Display.Light)

	header := m.layout.RenderHeader(styles.Header, m.env.Config.App.Name, m.status())
	content := m.renderContent()
	content = toasts.Overlay(content, m.toasts.View(), m.layout.Width)
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) renderContent() string {
	switch m.overlay {
	case OverlayHelp:
		return m.layout.Center(m.helpView.View())
	case OverlayCommand:
		return m.commandView.View()
	}

	switch m.screen {
	case ui.ScreenLanding:
		return m.landing.View()
	case ui.ScreenLogin:
		return m.login.View()
	case ui.ScreenSystem:
		return m.system.View()
	case ui.ScreenThemes:
		return m.themes.View()
	case ui.ScreenVerify:
		return m.verify.View()
	case ui.ScreenResetPassword:
		return m.resetpw.View()
	default:
		return ""
	}
}

// status is the right side of the header.
func (m Model) status() string {
	if email := m.env.Session.Email(); email != "" {
		return email
	}
	return "guest"
}
