// Package command is the ":" palette. It turns a typed line into a
// CommandMsg for the root model and remembers what was run.
package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/theme"
)

// maxHistory bounds the recall list.
const maxHistory = 20

// CommandMsg is a submitted palette line, e.g. "toast Saved".
type CommandMsg string

// CancelMsg is emitted when the palette is closed without running anything.
type CancelMsg struct{}

// Name returns the first word of the command.
func (c CommandMsg) Name() string {
	name, _, _ := strings.Cut(string(c), " ")
	return strings.ToLower(name)
}

// Args returns everything after the first word.
func (c CommandMsg) Args() string {
	_, args, _ := strings.Cut(string(c), " ")
	return strings.TrimSpace(args)
}

// Model is the palette.
type Model struct {
	input   textinput.Model
	history []string
	// recall is the history position shown, len(history) when editing a
	// fresh line.
	recall int
	width  int
	height int
}

// New creates the palette. commands are offered as tab completions.
func New(width, height int, commands ...string) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(commands)
	// Up and down walk the history instead.
	ti.KeyMap.NextSuggestion = key.NewBinding(key.WithKeys("ctrl+n"))
	ti.KeyMap.PrevSuggestion = key.NewBinding(key.WithKeys("ctrl+p"))
	ti.Focus()

	m := Model{input: ti}
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// History returns the executed lines, oldest first.
func (m Model) History() []string {
	return m.history
}

// Update handles messages for the palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			m.remember(line)
			return m, func() tea.Msg { return CommandMsg(line) }

		case tea.KeyEsc:
			m.input.Reset()
			m.recall = len(m.history)
			return m, func() tea.Msg { return CancelMsg{} }

		case tea.KeyUp:
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil

		case tea.KeyDown:
			if m.recall < len(m.history) {
				m.recall++
			}
			if m.recall == len(m.history) {
				m.input.Reset()
			} else {
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = len(m.history)
}

// View renders the palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Command Palette")
	hint := theme.HelpStyle.Render("tab complete • ↑/↓ history • esc close")

	return theme.BorderStyle.
		Padding(0, 1).
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.input.View(), hint))
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-10, 1)
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
