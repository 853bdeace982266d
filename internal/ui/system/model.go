// Package system is the signed-in home screen.
package system

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/session"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

// Card indexes.
const (
	CardThemes = iota
	CardSettings
	cardCount
)

type userLoadedMsg struct {
	user *auth.User
	err  error
}

type signedOutMsg struct {
	err error
}

// Model is the system screen.
type Model struct {
	env      *ui.Env
	user     *auth.User
	loading  bool
	selected int
	settings bool
	spinner  spinner.Model
	styles   theme.Styles

	width, height int
}

// New creates the system screen.
func New(env *ui.Env, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		env:     env,
		loading: true,
		spinner: sp,
		styles:  theme.ByID(env.Config.Display.Theme).Styles(env.Config.Display.Light),
		width:   width,
		height:  height,
	}
}

// Init confirms the session with the provider.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadUser())
}

// User returns the confirmed user, nil until loaded.
func (m Model) User() *auth.User {
	return m.user
}

// Selected returns the focused card.
func (m Model) Selected() int {
	return m.selected
}

func (m Model) loadUser() tea.Cmd {
	sess := m.env.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		user, err := sess.Validate(ctx)
		return userLoadedMsg{user: user, err: err}
	}
}

func (m Model) signOut() tea.Cmd {
	sess := m.env.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()
		return signedOutMsg{err: sess.SignOut(ctx)}
	}
}

// Update handles messages for the system screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case userLoadedMsg:
		m.loading = false
		if msg.err != nil {
			err := msg.err
			return m, func() tea.Msg { return ui.SignedOutMsg{Err: err} }
		}
		m.user = msg.user
		return m, nil

	case signedOutMsg:
		if msg.err != nil {
			m.env.Log().Warn("provider sign out failed", "error", msg.err)
		}
		return m, func() tea.Msg { return ui.SignedOutMsg{} }

	case ui.ThemeChangedMsg:
		m.styles = theme.ByID(msg.ThemeID).Styles(msg.Light)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	k := m.env.Keys

	switch {
	case key.Matches(msg, k.NextItem), key.Matches(msg, k.Down):
		m.selected = (m.selected + 1) % cardCount
		m.settings = false
	case key.Matches(msg, k.PrevItem), key.Matches(msg, k.Up):
		m.selected = (m.selected - 1 + cardCount) % cardCount
		m.settings = false
	case key.Matches(msg, k.Select):
		if m.selected == CardThemes {
			return m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenThemes} }
		}
		m.settings = !m.settings
	case key.Matches(msg, k.Back):
		m.settings = false
	case key.Matches(msg, k.SignOut):
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.signOut())
	}
	return m, nil
}

// View renders the system screen.
func (m Model) View() string {
	s := m.styles
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" "+s.Muted.Render("Loading..."))
	}

	email := ""
	if m.user != nil {
		email = m.user.Email
	}

	welcome := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Welcome, "+email),
		s.Muted.Width(min(m.width-4, 72)).Render(
			"You have successfully logged in and been redirected to the system page. "+
				"From here you can manage your SDDM settings and customize your login experience."),
	)

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.card(CardThemes, "SDDM Themes",
			"You can customize your login screen by selecting different themes.", "Manage Themes"),
		" ",
		m.card(CardSettings, "System Settings",
			"Configure system preferences and user settings.", "Open Settings"),
	)

	parts := []string{welcome, "", cards}
	if m.settings {
		parts = append(parts, "", m.viewSettings())
	}
	parts = append(parts, "", s.Help.Render("tab switch • enter open • o sign out • : commands • ? help"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) card(idx int, title, body, action string) string {
	s := m.styles
	style := s.Card
	if idx == m.selected {
		style = s.Selected
	}
	return style.Width(32).Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Text.Bold(true).Render(title),
		s.Muted.Render(body),
		"",
		s.Link.Render(action),
	))
}

func (m Model) viewSettings() string {
	cfg := m.env.Config
	s := m.styles
	rows := []string{
		fmt.Sprintf("Config file   %s", m.env.ConfigPath),
		fmt.Sprintf("Theme         %s", theme.ByID(cfg.Display.Theme).Name),
		fmt.Sprintf("Light mode    %t", cfg.Display.Light),
		fmt.Sprintf("Callback      %s", cfg.CallbackURL("")),
		fmt.Sprintf("Provider      %s", cfg.Auth.URL),
		fmt.Sprintf("Log file      %s", cfg.Log.Path),
		"Session check " + sessionCheck(m.env.Watcher),
	}
	return s.Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("System Settings")}, s.Text.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))...,
	))
}

func sessionCheck(w *session.Watcher) string {
	if w == nil {
		return "off"
	}
	state, last := w.State()
	status := "never"
	if !last.IsZero() {
		status = fmt.Sprintf("%s at %s", state, last.Format("15:04:05"))
	}
	if !w.Running() {
		status += " (paused)"
	}
	return status
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
