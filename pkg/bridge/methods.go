package bridge

import "sort"

// extensionMethods is the fixed set of method names served by the
// companion extension instead of the DevTools protocol. These cover
// browser APIs the protocol has no access to: tab groups, the full
// cookie store, notifications and extension storage.
var extensionMethods = map[string]struct{}{
	"tabs.group":           {},
	"tabs.ungroup":         {},
	"tabGroups.update":     {},
	"tabGroups.query":      {},
	"tabGroups.collapse":   {},
	"cookies.get":          {},
	"cookies.getAll":       {},
	"cookies.set":          {},
	"notifications.create": {},
	"storage.get":          {},
	"storage.set":          {},
}

// IsExtensionMethod reports whether method is routed to the extension.
func IsExtensionMethod(method string) bool {
	_, ok := extensionMethods[method]
	return ok
}

// Methods returns the extension-routed method names, sorted.
func Methods() []string {
	names := make([]string, 0, len(extensionMethods))
	for name := range extensionMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
