// Package service is the method dispatcher of the browsergate daemon.
// It maps wire-level method names onto browser sessions, the extension
// bridge and the auth-state store.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/browsergate/browsergate/pkg/bridge"
	"github.com/browsergate/browsergate/pkg/browser"
	"github.com/browsergate/browsergate/pkg/logging"
	"github.com/browsergate/browsergate/pkg/state"
)

// Service routes requests to the right backend. Extension-served
// methods go over the bridge; everything else resolves a session and
// drives the browser, or touches the state store.
type Service struct {
	manager *browser.Manager
	bridge  *bridge.Bridge
	store   *state.Store
	logger  *logging.Logger
}

// New wires a service from its backends.
func New(manager *browser.Manager, br *bridge.Bridge, store *state.Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		manager: manager,
		bridge:  br,
		store:   store,
		logger:  logger,
	}
}

// Dispatch executes one request. Extension methods are checked first,
// before any session resolution, so they work even while no browser
// session is involved. Browser methods accept both the namespaced form
// ("browser.open") and the bare alias ("open").
func (s *Service) Dispatch(ctx context.Context, method string, params map[string]any) (any, error) {
	s.logger.Debugf("dispatch %s", method)

	if bridge.IsExtensionMethod(method) {
		return s.callExtension(ctx, method, params)
	}

	switch normalizeMethod(method) {
	case "health":
		return s.handleHealth()
	case "open":
		return s.handleOpen(params)
	case "snapshot":
		return s.handleSnapshot(params)
	case "screenshot":
		return s.handleScreenshot(params)
	case "click":
		return s.handleClick(params)
	case "fill":
		return s.handleFill(params)
	case "select":
		return s.handleSelect(params)
	case "check":
		return s.handleCheck(params)
	case "hover":
		return s.handleHover(params)
	case "scroll":
		return s.handleScroll(params)
	case "press":
		return s.handlePress(params)
	case "press_combo":
		return s.handlePressCombo(params)
	case "upload":
		return s.handleUpload(params)
	case "state.save":
		return s.handleStateSave(params)
	case "state.load":
		return s.handleStateLoad(params)
	case "state.list":
		return s.handleStateList()
	case "session.new":
		return s.handleSessionNew(params)
	case "session.list":
		return s.handleSessionList()
	case "session.close":
		return s.handleSessionClose(params)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

// normalizeMethod strips the optional "browser." namespace so both
// spellings dispatch identically.
func normalizeMethod(method string) string {
	return strings.TrimPrefix(method, "browser.")
}

func (s *Service) callExtension(ctx context.Context, method string, params map[string]any) (any, error) {
	raw, err := s.bridge.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("malformed extension result: %w", err)
	}
	return result, nil
}
