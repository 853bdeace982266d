package landing

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/gtdxp-os/internal/theme"
	"github.com/nhle/gtdxp-os/internal/ui"
)

// Feature is one of the GTD steps shown on the page.
type Feature struct {
	Title       string
	Description string
}

// Features lists the product pillars in display order.
var Features = []Feature{
	{"Capture", "Quickly jot down tasks, ideas, or anything on your mind with an intuitive inbox."},
	{"Clarify", "Define actionable steps for each task to make decisions and move forward."},
	{"Organize", "Sort tasks into projects and categories for a clear, structured workflow."},
	{"Reflect", "Review your system weekly to stay on track and update your priorities."},
	{"Engage", "Tackle tasks with focus using Pomodoro timers and earn XP for completions."},
	{"Gamification", "Earn badges, level up, and unlock rewards as you conquer your tasks."},
}

type stat struct {
	value, label string
}

// GTDGuideURL is where the methodology section points for further reading.
const GTDGuideURL = "https://gettingthingsdone.com/what-is-gtd/"

var stats = []stat{
	{"5", "GTD Steps"},
	{"100+", "Achievements"},
	{"24/7", "Access"},
	{"0", "Subscriptions"},
}

// Model is the landing page.
type Model struct {
	env      *ui.Env
	viewport viewport.Model
	styles   theme.Styles
	width    int
	height   int
	// docsLine is the content line where the methodology section starts.
	docsLine int
}

// New creates the landing page.
func New(env *ui.Env, width, height int) Model {
	m := Model{env: env}
	m.styles = theme.ByID(env.Config.Display.Theme).Styles(env.Config.Display.Light)
	m.viewport = viewport.New(width, height)
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles landing page keys; anything else scrolls the page.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.env.Keys.Login):
			return m, navigate(ui.NavigateMsg{To: ui.ScreenLogin})
		case key.Matches(msg, m.env.Keys.SignUp):
			return m, navigate(ui.NavigateMsg{To: ui.ScreenLogin, SignUp: true})
		case msg.String() == "q":
			return m, func() tea.Msg { return ui.QuitMsg{} }
		case msg.String() == "d":
			return m.ShowDocs(), nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func navigate(msg ui.NavigateMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the page.
func (m Model) View() string {
	hints := m.styles.Help.Render("l login • s sign up • d docs • ↑/↓ scroll • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), hints)
}

// SetSize updates the page dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-1, 1)
	content, docsLine := m.content()
	m.docsLine = docsLine
	m.viewport.SetContent(content)
}

// ShowDocs scrolls the page to the GTD methodology section.
func (m Model) ShowDocs() Model {
	m.viewport.SetYOffset(m.docsLine)
	return m
}

// DocsVisible reports whether the methodology section starts on screen.
func (m Model) DocsVisible() bool {
	top := m.viewport.YOffset
	return m.docsLine >= top && m.docsLine < top+m.viewport.Height
}

func (m Model) content() (string, int) {
	s := m.styles
	name := m.env.Config.App.Name
	var b strings.Builder

	b.WriteString(s.Title.Render(name) + "\n")
	b.WriteString(s.Text.Render("Gamified GTD Productivity System") + "\n\n")
	b.WriteString(s.Muted.Render(wrap(
		"Master your tasks with "+name+", a gamified productivity system based on Getting Things Done (GTD). "+
			"One-time payment of $19 or try free for 14 days.", m.width)) + "\n\n")
	b.WriteString(s.Button.Render("Start Free Trial") + "  " + s.Button.Render("Buy Now ($19)") + "\n\n")

	b.WriteString(s.Title.Render("Why "+name+"?") + "\n\n")
	for _, f := range Features {
		b.WriteString(s.Text.Bold(true).Render("▸ "+f.Title) + "\n")
		b.WriteString(s.Muted.Render(wrap(f.Description, m.width-2)) + "\n\n")
	}

	cells := make([]string, 0, len(stats))
	for _, st := range stats {
		cells = append(cells, s.Card.Render(
			lipgloss.JoinVertical(lipgloss.Center, s.Title.Render(st.value), s.Muted.Render(st.label)),
		))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n\n")

	b.WriteString(s.Title.Render("Pricing") + "\n\n")
	lifetime := s.Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Text.Bold(true).Render("Lifetime Access"),
		s.Title.Render("$19")+s.Muted.Render(" / one-time"),
		s.Muted.Render("Every feature, every update, no subscription."),
	))
	trial := s.Card.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Text.Bold(true).Render("Free Trial"),
		s.Title.Render("14 days"),
		s.Muted.Render("Try everything before you buy."),
	))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, lifetime, trial) + "\n\n")

	docsLine := strings.Count(b.String(), "\n")
	b.WriteString(s.Title.Render("GTD Methodology") + "\n\n")
	b.WriteString(s.Muted.Render(wrap(
		"Getting Things Done (GTD) is a productivity framework by David Allen. "+
			"Capture everything on your mind, clarify what each item means, organize the results, "+
			"reflect on the whole system weekly and engage with what matters now.", m.width)) + "\n")
	b.WriteString(s.Link.Render("Read more about GTD: "+GTDGuideURL) + "\n\n")

	b.WriteString(s.Text.Render(fmt.Sprintf("Get Started Now: press %s to create your account.", "s")))
	return b.String(), docsLine
}

func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
