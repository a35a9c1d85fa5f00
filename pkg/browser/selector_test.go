package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSelectorRef(t *testing.T) {
	assert.Equal(t, `[data-bg-ref="e1"]`, ResolveSelector("@e1"))
	assert.Equal(t, `[data-bg-ref="e42"]`, ResolveSelector("@e42"))
}

func TestResolveSelectorPassthrough(t *testing.T) {
	selectors := []string{
		"#login",
		"button.primary",
		`input[name="q"]`,
		"div > span:nth-child(2)",
	}
	for _, sel := range selectors {
		assert.Equal(t, sel, ResolveSelector(sel))
	}
}

func TestResolveSelectorArbitraryRef(t *testing.T) {
	// Anything after "@" is treated as a ref, not validated
	assert.Equal(t, `[data-bg-ref="custom"]`, ResolveSelector("@custom"))
	assert.Equal(t, `[data-bg-ref=""]`, ResolveSelector("@"))
}

func TestResolveSelectorDeterministic(t *testing.T) {
	first := ResolveSelector("@e7")
	second := ResolveSelector("@e7")
	assert.Equal(t, first, second)
}
