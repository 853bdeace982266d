// Package toasts renders the notification queue as an overlay and feeds
// queue changes into the Bubble Tea runtime.
package toasts

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/toast"
)

// DefaultMaxVisible is used when the configured limit is not positive.
const DefaultMaxVisible = 5

// descriptionLines caps how much of a description one toast shows.
const descriptionLines = 3

var descriptionStyle = lipgloss.NewStyle().Width(38).MaxHeight(descriptionLines)

// UpdatedMsg carries a fresh queue snapshot.
type UpdatedMsg struct {
	Toasts []toast.Notification
}

// Model mirrors the queue for rendering.
type Model struct {
	updates    chan []toast.Notification
	unsub      func()
	current    []toast.Notification
	maxVisible int
}

// New subscribes to q. Call Close when the program exits.
func New(q *toast.Queue, maxVisible int) *Model {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	m := &Model{
		updates:    make(chan []toast.Notification, 1),
		maxVisible: maxVisible,
	}
	m.unsub = q.Subscribe(m.push)
	return m
}

// push runs inside the queue's broadcast. Only the newest snapshot matters,
// so an unread one is replaced.
func (m *Model) push(snapshot []toast.Notification) {
	select {
	case <-m.updates:
	default:
	}
	m.updates <- snapshot
}

// WaitForUpdate returns a tea.Cmd that waits for the next snapshot. Call it
// again after handling an UpdatedMsg to keep listening.
func (m *Model) WaitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return UpdatedMsg{Toasts: <-m.updates}
	}
}

// Update stores a snapshot and keeps the wait chain alive.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(UpdatedMsg); ok {
		m.current = msg.Toasts
		return m.WaitForUpdate()
	}
	return nil
}

// Toasts returns the last received snapshot.
func (m *Model) Toasts() []toast.Notification {
	return m.current
}

// Close stops mirroring the queue.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// View renders the newest toasts stacked, newest at the bottom. It returns
// "" when there is nothing to show.
func (m *Model) View() string {
	items := m.current
	if len(items) == 0 {
		return ""
	}
	if len(items) > m.maxVisible {
		items = items[len(items)-m.maxVisible:]
	}

	boxes := make([]string, 0, len(items))
	for _, n := range items {
		boxes = append(boxes, renderToast(n))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func renderToast(n toast.Notification) string {
	kind := string(n.Kind)
	lines := []string{theme.ToastTitleStyle(kind).Render(n.Title)}
	if d := strings.TrimSpace(n.Description); d != "" {
		lines = append(lines, descriptionStyle.Render(d))
	}
	return theme.ToastStyle(kind, n.Visible).Render(strings.Join(lines, "\n"))
}

// Overlay draws the toast stack over the top-right corner of base, which is
// width cells wide. Lines of base under the stack are replaced.
func Overlay(base, toasts string, width int) string {
	if toasts == "" {
		return base
	}

	baseLines := strings.Split(base, "\n")
	for i, line := range strings.Split(toasts, "\n") {
		placed := lipgloss.PlaceHorizontal(width, lipgloss.Right, line)
		if i < len(baseLines) {
			baseLines[i] = placed
		} else {
			baseLines = append(baseLines, placed)
		}
	}
	return strings.Join(baseLines, "\n")
}
