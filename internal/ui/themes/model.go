// Package themes lets the user pick the login screen theme.
package themes

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

type appliedMsg struct {
	themeID string
	err     error
}

// Model is the theme picker.
type Model struct {
	env      *ui.Env
	cursor   int
	selected int
	saving   bool
	width    int
	height   int
}

// New creates the picker with the configured theme selected.
func New(env *ui.Env, width, height int) Model {
	idx := theme.Index(env.Config.Display.Theme)
	return Model{
		env:      env,
		cursor:   idx,
		selected: idx,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the chosen theme.
func (m Model) Selected() theme.Theme {
	return theme.All[m.selected]
}

// Update handles messages for the picker.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case appliedMsg:
		m.saving = false
		if msg.err != nil {
			m.env.Toasts.Error("Could not save theme", msg.err.Error())
			return m, nil
		}
		t := theme.ByID(msg.themeID)
		m.env.Toasts.Success("Theme applied", t.Name)
		changed := ui.ThemeChangedMsg{ThemeID: t.ID, Light: m.env.Config.Display.Light}
		return m, tea.Sequence(
			func() tea.Msg { return changed },
			func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenSystem} },
		)

	case tea.KeyMsg:
		if m.saving {
			return m, nil
		}
		k := m.env.Keys
		switch {
		case key.Matches(msg, k.Down), key.Matches(msg, k.NextItem):
			m.cursor = (m.cursor + 1) % len(theme.All)
		case key.Matches(msg, k.Up), key.Matches(msg, k.PrevItem):
			m.cursor = (m.cursor - 1 + len(theme.All)) % len(theme.All)
		case key.Matches(msg, k.Select):
			m.selected = m.cursor
		case key.Matches(msg, k.Apply):
			m.saving = true
			return m, m.apply(theme.All[m.selected].ID)
		case key.Matches(msg, k.Back):
			return m, func() tea.Msg { return ui.NavigateMsg{To: ui.ScreenSystem} }
		}
	}
	return m, nil
}

// apply records the choice in the preferences table and the config file.
func (m Model) apply(id string) tea.Cmd {
	env := m.env
	cfg := *env.Config
	cfg.Display.Theme = id
	return func() tea.Msg {
		if env.Store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
			defer cancel()
			if err := env.Store.SetPreference(ctx, store.PrefTheme, id); err != nil {
				return appliedMsg{err: err}
			}
			if err := env.Store.SetPreference(ctx, store.PrefLight, strconv.FormatBool(cfg.Display.Light)); err != nil {
				return appliedMsg{err: err}
			}
		}
		if env.ConfigPath != "" {
			if err := model.SaveConfig(env.ConfigPath, &cfg); err != nil {
				return appliedMsg{err: err}
			}
		}
		return appliedMsg{themeID: id}
	}
}

// View renders the picker.
func (m Model) View() string {
	current := theme.All[m.selected]
	s := current.Styles(m.env.Config.Display.Light)

	rows := []string{s.Title.Render("SDDM Themes"), ""}
	for i, t := range theme.All {
		style := s.Card
		if i == m.cursor {
			style = s.Selected
		}
		name := t.Name
		if i == m.selected {
			name += " ✓"
		}
		rows = append(rows, style.Width(min(m.width-4, 64)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				s.Text.Bold(true).Render(name),
				t.Styles(m.env.Config.Display.Light).Muted.Render(t.Description),
				preview(t, m.env.Config.Display.Light),
			),
		))
	}

	status := "↑/↓ move • enter select • a apply theme • esc back"
	if m.saving {
		status = "Saving..."
	}
	rows = append(rows, "", s.Help.Render(status))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// preview shows a swatch of the theme's palette.
func preview(t theme.Theme, light bool) string {
	p := t.Dark
	if light {
		p = t.Light
	}
	var out string
	for _, c := range []lipgloss.Color{p.Text, p.Accent, p.Surface, p.Border, p.Button} {
		out += lipgloss.NewStyle().Background(c).Render("   ")
	}
	return out
}

// SetSize updates the picker dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
