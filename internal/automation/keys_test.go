package automation

import (
	"testing"

	"github.com/micmonay/keybd_event"
	"github.com/stretchr/testify/assert"
)

func TestChordString(t *testing.T) {
	assert.Equal(t, "ctrl+right", Ctrl(KeyRight).String())
	assert.Equal(t, "space", Press(KeySpace).String())
	assert.Equal(t, "ctrl+shift+l", Chord{Ctrl: true, Shift: true, Keys: []Key{KeyL}}.String())
}

func TestStrokes(t *testing.T) {
	got, skipped := strokes("Ab 7!")

	assert.Equal(t, []stroke{
		{code: keybd_event.VK_A, shift: true},
		{code: keybd_event.VK_B},
		{code: keybd_event.VK_SPACE},
		{code: keybd_event.VK_7},
	}, got)
	assert.Equal(t, []rune{'!'}, skipped)
}

func TestEveryKeyHasCode(t *testing.T) {
	for k := range keyNames {
		_, ok := vk[k]
		assert.True(t, ok, k.String())
	}
}
