package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value) shared by
// every theme.
var (
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
)

// Palette holds the colors a theme draws with in one mode.
type Palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Surface lipgloss.Color
	Border  lipgloss.Color
	Button  lipgloss.Color
}

// Theme is a login-screen look.
type Theme struct {
	ID          string
	Name        string
	Description string
	Dark        Palette
	Light       Palette
	// Mono renders the clock in block digits.
	Mono bool
}

// All is the list of available themes, in cycling order.
var All = []Theme{
	{
		ID:          "cyberpunk",
		Name:        "Cyberpunk",
		Description: "A futuristic cyberpunk theme with pixel art and neon blue accents",
		Mono:        true,
		Dark: Palette{
			Text:    "#A3E4FF",
			Muted:   "#7BC9FF",
			Accent:  "#A3E4FF",
			Surface: "#0A1525",
			Border:  "#3A6A9C",
			Button:  "#1A2E4C",
		},
		Light: Palette{
			Text:    "#1A2E4C",
			Muted:   "#3A6A9C",
			Accent:  "#0077B6",
			Surface: "#E6F6FF",
			Border:  "#7BC9FF",
			Button:  "#A3E4FF",
		},
	},
	{
		ID:          "space",
		Name:        "Space",
		Description: "A space-themed login screen with planets and satellites",
		Dark: Palette{
			Text:    "#FFFFFF",
			Muted:   "#C8CCD4",
			Accent:  "#B39DDB",
			Surface: "#1A2E4C",
			Border:  "#5C6B80",
			Button:  "#2E3F5C",
		},
		Light: Palette{
			Text:    "#1A202C",
			Muted:   "#4A5568",
			Accent:  "#5A3E99",
			Surface: "#F2F4F8",
			Border:  "#A0AEC0",
			Button:  "#E2E8F0",
		},
	},
}

// Default is the theme used when nothing else is configured.
const Default = "cyberpunk"

// Index returns the position of the theme with id, or 0 when unknown.
func Index(id string) int {
	id = strings.ToLower(strings.TrimSpace(id))
	for i, t := range All {
		if t.ID == id {
			return i
		}
	}
	return 0
}

// ByID returns the theme with id, falling back to the default.
func ByID(id string) Theme {
	return All[Index(id)]
}

// Next returns the index after i, wrapping around.
func Next(i int) int {
	return (i + 1) % len(All)
}

// Prev returns the index before i, wrapping around.
func Prev(i int) int {
	return (i - 1 + len(All)) % len(All)
}

// Styles are the lipgloss styles derived from a theme in one mode.
type Styles struct {
	Clock    lipgloss.Style
	Date     lipgloss.Style
	Form     lipgloss.Style
	Title    lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Link     lipgloss.Style
	Button   lipgloss.Style
	Alert    lipgloss.Style
	Card     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Help     lipgloss.Style
}

// Styles builds the style set for the theme. light selects the light palette.
func (t Theme) Styles(light bool) Styles {
	p := t.Dark
	if light {
		p = t.Light
	}

	return Styles{
		Clock: lipgloss.NewStyle().Bold(true).Foreground(p.Text),
		Date:  lipgloss.NewStyle().Foreground(p.Muted),
		Form: lipgloss.NewStyle().
			Padding(1, 3).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),
		Title: lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Text:  lipgloss.NewStyle().Foreground(p.Text),
		Muted: lipgloss.NewStyle().Foreground(p.Muted),
		Link:  lipgloss.NewStyle().Foreground(p.Accent).Underline(true),
		Button: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Text).
			Background(p.Button).
			Padding(0, 2),
		Alert: lipgloss.NewStyle().
			Foreground(ColorRed).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorRed).
			PaddingLeft(1),
		Card: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),
		Selected: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.ThickBorder()).
			BorderForeground(p.Accent),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Surface).
			Background(p.Accent).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(ColorGray).Italic(true),
	}
}

// HeaderStyle is used for top-level section headers outside themed screens.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}).
	Background(lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}).
	Padding(0, 1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"})

// ToastStyle returns the box style for a toast of the given kind. Toasts
// that are fading out are drawn faint.
func ToastStyle(kind string, visible bool) lipgloss.Style {
	base := lipgloss.NewStyle().
		Width(40).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	switch kind {
	case "success":
		base = base.BorderForeground(ColorGreen)
	case "error":
		base = base.BorderForeground(ColorRed)
	case "warning":
		base = base.BorderForeground(ColorYellow)
	default:
		base = base.BorderForeground(ColorGray)
	}

	if !visible {
		base = base.Faint(true)
	}
	return base
}

// ToastTitleStyle colors the title line of a toast.
func ToastTitleStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch kind {
	case "success":
		return base.Foreground(ColorGreen)
	case "error":
		return base.Foreground(ColorRed)
	case "warning":
		return base.Foreground(ColorYellow)
	default:
		return base
	}
}
