package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the top bar with a title on the left and status
// text on the right.
func (l Layout) RenderHeader(style lipgloss.Style, title, status string) string {
	titleRendered := style.Render(title)
	statusRendered := style.Align(lipgloss.Right).Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return theme.HelpStyle.
		Width(l.Width).
		MaxHeight(l.StatusBarHeight).
		Render(hints)
}

// Center places content in the middle of the content area.
func (l Layout) Center(content string) string {
	return lipgloss.Place(
		l.Width, l.ContentHeight(),
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
