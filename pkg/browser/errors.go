package browser

import "errors"

// Sentinel errors returned by session and manager operations. Callers
// match them with errors.Is; wrapped causes carry the detail.
var (
	// ErrSessionNotFound is returned when an operation names a session
	// id that is not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProtectedSession is returned when a caller attempts to close
	// the default session.
	ErrProtectedSession = errors.New("cannot close default session")

	// ErrElementNotFound is returned when a selector matches nothing on
	// the current page.
	ErrElementNotFound = errors.New("element not found")

	// ErrContextCreation is returned when the browser refuses to create
	// an isolated context or its tab.
	ErrContextCreation = errors.New("failed to create browser context")

	// ErrFileNotFound is returned by Upload when the local file does
	// not exist.
	ErrFileNotFound = errors.New("file not found")
)
