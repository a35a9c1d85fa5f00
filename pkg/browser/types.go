package browser

import "time"

// Default values for sessions and operations
const (
	// DefaultSessionID is the id of the always-present default session.
	DefaultSessionID = "default"

	// RefAttribute is the DOM attribute snapshots write element refs to.
	// The "@eN" selector form resolves against it.
	RefAttribute = "data-bg-ref"

	// DefaultScreenshotQuality is the JPEG quality for screenshots.
	DefaultScreenshotQuality = 90

	// DefaultSnapshotMaxNodes bounds how many nodes a snapshot returns.
	// Element-heavy pages keep their first N nodes in extraction order.
	DefaultSnapshotMaxNodes = 200
)

// AccessibilityNode is one element of a page snapshot. Ref is the
// element handle ("@e1", "@e2", ...), usable directly as a selector in
// any element-targeting operation until the next snapshot reassigns
// refs. Children is always empty: snapshots are flattened on purpose
// so callers never walk a tree.
type AccessibilityNode struct {
	Ref       string              `json:"ref"`
	Role      string              `json:"role"`
	Name      string              `json:"name,omitempty"`
	Value     string              `json:"value,omitempty"`
	Focusable bool                `json:"focusable"`
	Focused   bool                `json:"focused"`
	Children  []AccessibilityNode `json:"children"`
}

// Snapshot is the flattened accessibility view of the current page.
type Snapshot struct {
	URL          string              `json:"url"`
	Title        string              `json:"title"`
	Nodes        []AccessibilityNode `json:"nodes"`
	ElementCount int                 `json:"element_count"`
}

// NavigationResult reports where a navigation landed.
type NavigationResult struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ScreenshotResult carries a captured screenshot, either inline as
// base64 or written to Path when the caller asked for a file.
type ScreenshotResult struct {
	Data   string `json:"data,omitempty"`
	Path   string `json:"path,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Cookie is the wire shape for cookie get/set and saved auth states.
// Expires is seconds since the unix epoch; nil means a session cookie.
type Cookie struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Domain   string   `json:"domain"`
	Path     string   `json:"path"`
	Expires  *float64 `json:"expires,omitempty"`
	Secure   bool     `json:"secure"`
	HTTPOnly bool     `json:"http_only"`
	SameSite string   `json:"same_site,omitempty"`
}

// LocalStorageState is one origin's localStorage contents.
type LocalStorageState struct {
	Origin string            `json:"origin"`
	Items  map[string]string `json:"items"`
}

// SessionInfo is the listing view of a session.
type SessionInfo struct {
	ID         string    `json:"id"`
	CurrentURL string    `json:"current_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}
