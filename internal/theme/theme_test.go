package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycling(t *testing.T) {
	assert.Equal(t, 1, Next(0))
	assert.Equal(t, 0, Next(len(All)-1))
	assert.Equal(t, len(All)-1, Prev(0))
	assert.Equal(t, 0, Prev(1))
}

func TestByID(t *testing.T) {
	assert.Equal(t, "Space", ByID("space").Name)
	assert.Equal(t, "Space", ByID(" SPACE ").Name)
	assert.Equal(t, Default, ByID("nope").ID)
	assert.Equal(t, 0, Index(""))
}

func TestStylesFollowMode(t *testing.T) {
	cyber := ByID("cyberpunk")

	dark := cyber.Styles(false)
	light := cyber.Styles(true)
	assert.Equal(t, cyber.Dark.Text, dark.Text.GetForeground())
	assert.Equal(t, cyber.Light.Text, light.Text.GetForeground())
}

func TestToastStyle(t *testing.T) {
	assert.Equal(t, ColorRed, ToastStyle("error", true).GetBorderTopForeground())
	assert.Equal(t, ColorGreen, ToastStyle("success", true).GetBorderTopForeground())
	assert.Equal(t, ColorGray, ToastStyle("default", true).GetBorderTopForeground())
	assert.False(t, ToastStyle("default", true).GetFaint())
	assert.True(t, ToastStyle("warning", false).GetFaint())
}
