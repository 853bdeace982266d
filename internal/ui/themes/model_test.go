package themes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gtdxp-os/internal/keys"
	"github.com/nhle/gtdxp-os/internal/model"
	"github.com/nhle/gtdxp-os/internal/store"
	"github.com/nhle/gtdxp-os/internal/toast"
	"github.com/nhle/gtdxp-os/internal/ui"
	"github.com/nhle/gtdxp-os/tests/testutil"
)

func newPicker(t *testing.T) (Model, *ui.Env) {
	t.Helper()
	cfg, err := model.LoadConfig("")
	require.NoError(t, err)

	q := toast.New(toast.WithDefaultDuration(time.Hour))
	t.Cleanup(q.Clear)

	env := &ui.Env{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Store:      testutil.NewTestStore(t),
		Toasts:     q,
		Keys:       keys.DefaultKeyMap(),
	}
	return New(env, 100, 40), env
}

func TestSelectAndApply(t *testing.T) {
	m, env := newPicker(t)
	assert.Equal(t, "cyberpunk", m.Selected().ID)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "cyberpunk", m.Selected().ID, "moving does not select")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "space", m.Selected().ID)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.NotNil(t, cmd)
	assert.True(t, m.saving)

	m, next := m.Update(cmd())
	assert.False(t, m.saving)
	assert.NotNil(t, next)

	v, err := env.Store.GetPreference(context.Background(), store.PrefTheme)
	require.NoError(t, err)
	assert.Equal(t, "space", v)

	saved, err := model.LoadConfig(env.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "space", saved.Display.Theme)

	toasts := env.Toasts.Snapshot()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Theme applied", toasts[0].Title)
	assert.Equal(t, "Space", toasts[0].Description)
}

func TestApplyFailureToasts(t *testing.T) {
	m, env := newPicker(t)
	env.ConfigPath = filepath.Join(t.TempDir(), "missing-dir-is-a-file")
	require.NoError(t, writeFile(env.ConfigPath))
	env.ConfigPath = filepath.Join(env.ConfigPath, "config.yaml")

	m, _ = m.Update(m.apply("space")())
	toasts := env.Toasts.Snapshot()
	require.Len(t, toasts, 1)
	assert.Equal(t, toast.KindError, toasts[0].Kind)
	assert.False(t, m.saving)
}

func TestBack(t *testing.T) {
	m, _ := newPicker(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, ui.NavigateMsg{To: ui.ScreenSystem}, cmd())
}

func TestViewListsThemes(t *testing.T) {
	m, _ := newPicker(t)
	view := m.View()
	assert.Contains(t, view, "Cyberpunk ✓")
	assert.Contains(t, view, "Space")
	assert.Contains(t, view, "planets and satellites")
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}
