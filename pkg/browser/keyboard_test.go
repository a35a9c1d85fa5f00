package browser

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifierMask(t *testing.T) {
	tests := []struct {
		name      string
		modifiers []string
		want      int64
	}{
		{"empty", nil, 0},
		{"ctrl", []string{"ctrl"}, 1},
		{"control synonym", []string{"control"}, 1},
		{"shift", []string{"shift"}, 2},
		{"alt", []string{"alt"}, 4},
		{"meta", []string{"meta"}, 8},
		{"cmd synonym", []string{"cmd"}, 8},
		{"command synonym", []string{"command"}, 8},
		{"case insensitive", []string{"CTRL", "Shift"}, 3},
		{"ctrl shift", []string{"ctrl", "shift"}, 3},
		{"all", []string{"ctrl", "shift", "alt", "meta"}, 15},
		{"unknown ignored", []string{"hyper"}, 0},
		{"unknown mixed with known", []string{"hyper", "alt"}, 4},
		{"duplicates collapse", []string{"ctrl", "ctrl"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModifierMask(tt.modifiers))
		})
	}
}

func TestKeyEventsPair(t *testing.T) {
	events := keyEvents("a", 3)
	require.Len(t, events, 2)

	assert.Equal(t, input.KeyDown, events[0].Type)
	assert.Equal(t, input.KeyUp, events[1].Type)

	// Both events carry the key and the same modifier mask
	for _, ev := range events {
		assert.Equal(t, "a", ev.Key)
		assert.Equal(t, input.Modifier(3), ev.Modifiers)
	}
}

func TestKeyEventsNoModifiers(t *testing.T) {
	events := keyEvents("Enter", 0)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, "Enter", ev.Key)
		assert.Equal(t, input.Modifier(0), ev.Modifiers)
	}
}
