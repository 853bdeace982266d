// Package help renders the keyboard and command reference overlay.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/keys"
	"github.com/nhle/gtdxp-os/internal/theme"
)

// Model is the help overlay.
type Model struct {
	keys     *keys.KeyMap
	commands []string
	help     help.Model
	width    int
	height   int
}

// New creates the overlay. commands are listed under the shortcuts.
func New(km *keys.KeyMap, commands []string, width, height int) Model {
	m := Model{
		keys:     km,
		commands: commands,
		help:     help.New(),
	}
	m.help.ShowAll = true
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the overlay.
func (m Model) View() string {
	bold := lipgloss.NewStyle().Bold(true)

	sections := []string{
		bold.Render("Keyboard Shortcuts"),
		"",
		m.help.View(m.keys),
	}
	if len(m.commands) > 0 {
		sections = append(sections,
			"",
			bold.Render("Commands"),
			theme.HelpStyle.Render(":"+strings.Join(m.commands, "  :")),
		)
	}
	sections = append(sections, "", theme.HelpStyle.Render("? or esc to close"))

	return theme.BorderStyle.
		Padding(1, 2).
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 0)
}
