package browser

import (
	"fmt"
	"strings"
)

// ResolveSelector maps snapshot refs of the form "@eN" to the
// attribute selector the snapshot engine writes onto elements.
// Anything without the "@" prefix passes through as a raw CSS
// selector. The mapping is total and side-effect free; every
// operation that accepts a selector goes through it.
func ResolveSelector(selector string) string {
	if ref, ok := strings.CutPrefix(selector, "@"); ok {
		return fmt.Sprintf(`[%s=%q]`, RefAttribute, ref)
	}
	return selector
}
