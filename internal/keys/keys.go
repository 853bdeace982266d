package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down     key.Binding
	Up       key.Binding
	NextItem key.Binding
	PrevItem key.Binding

	// Selection
	Select key.Binding
	Apply  key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Landing
	Login  key.Binding
	SignUp key.Binding

	// Login screen theme and system buttons
	NextTheme   key.Binding
	PrevTheme   key.Binding
	ToggleLight key.Binding
	Shutdown    key.Binding
	Restart     key.Binding

	// Session
	SignOut key.Binding

	// Toasts
	DismissToast key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		NextItem: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next"),
		),
		PrevItem: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab/←", "previous"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Apply: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "apply theme"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Login: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "login"),
		),
		SignUp: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sign up"),
		),
		NextTheme: key.NewBinding(
			key.WithKeys("ctrl+right", "]"),
			key.WithHelp("]", "next theme"),
		),
		PrevTheme: key.NewBinding(
			key.WithKeys("ctrl+left", "["),
			key.WithHelp("[", "previous theme"),
		),
		ToggleLight: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "light/dark"),
		),
		Shutdown: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "shutdown"),
		),
		Restart: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "restart"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sign out"),
		),
		DismissToast: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "dismiss toasts"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Select, k.Back, k.Command, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextItem, k.PrevItem, k.Select, k.Back},
		{k.Login, k.SignUp, k.SignOut, k.Apply},
		{k.NextTheme, k.PrevTheme, k.ToggleLight, k.Shutdown, k.Restart},
		{k.Command, k.Help, k.DismissToast, k.Quit},
	}
}
