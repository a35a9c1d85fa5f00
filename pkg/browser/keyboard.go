package browser

import (
	"strings"

	"github.com/chromedp/cdproto/input"
)

// Modifier bits attached to synthesized key events.
const (
	ModifierCtrl  = 1
	ModifierShift = 2
	ModifierAlt   = 4
	ModifierMeta  = 8
)

// ModifierMask folds modifier names into a bitmask. Names are
// case-insensitive and common synonyms are accepted; unrecognized
// names contribute nothing.
func ModifierMask(modifiers []string) int64 {
	var mask int64
	for _, m := range modifiers {
		switch strings.ToLower(m) {
		case "ctrl", "control":
			mask |= ModifierCtrl
		case "shift":
			mask |= ModifierShift
		case "alt":
			mask |= ModifierAlt
		case "meta", "cmd", "command":
			mask |= ModifierMeta
		}
	}
	return mask
}

// keyEvents builds the down/up pair for one key press. Both events
// carry the same modifier mask.
func keyEvents(key string, mask int64) []*input.DispatchKeyEventParams {
	return []*input.DispatchKeyEventParams{
		input.DispatchKeyEvent(input.KeyDown).
			WithKey(key).
			WithModifiers(input.Modifier(mask)),
		input.DispatchKeyEvent(input.KeyUp).
			WithKey(key).
			WithModifiers(input.Modifier(mask)),
	}
}
