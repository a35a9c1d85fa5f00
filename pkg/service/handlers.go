package service

import (
	"fmt"
	"time"

	"github.com/browsergate/browsergate/pkg/state"
)

func (s *Service) handleHealth() (any, error) {
	product, err := s.manager.Health()
	healthy := err == nil
	if err != nil {
		s.logger.Warnf("health check failed: %v", err)
	}

	return map[string]any{
		"healthy":             healthy,
		"browser":             product,
		"sessions":            len(s.manager.Sessions()),
		"extension_connected": s.bridge.IsConnected(),
	}, nil
}

func (s *Service) handleOpen(params map[string]any) (any, error) {
	url, err := requireString(params, "url")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return session.Navigate(url)
}

func (s *Service) handleSnapshot(params map[string]any) (any, error) {
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return session.Snapshot()
}

func (s *Service) handleScreenshot(params map[string]any) (any, error) {
	path, _ := stringParam(params, "path")
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return session.Screenshot(path)
}

func (s *Service) handleClick(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Click(selector))
}

func (s *Service) handleFill(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	value, ok := stringParam(params, "value")
	if !ok {
		return nil, fmt.Errorf("missing %q parameter", "value")
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Fill(selector, value))
}

func (s *Service) handleSelect(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	value, err := requireString(params, "value")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Select(selector, value))
}

func (s *Service) handleCheck(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	checked := boolParam(params, "checked", true)
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Check(selector, checked))
}

func (s *Service) handleHover(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Hover(selector))
}

func (s *Service) handleScroll(params map[string]any) (any, error) {
	selector, _ := stringParam(params, "selector")
	deltaX, _ := floatParam(params, "x")
	deltaY, _ := floatParam(params, "y")
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Scroll(selector, deltaX, deltaY))
}

func (s *Service) handlePress(params map[string]any) (any, error) {
	key, err := requireString(params, "key")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Press(key))
}

func (s *Service) handlePressCombo(params map[string]any) (any, error) {
	key, err := requireString(params, "key")
	if err != nil {
		return nil, err
	}
	modifiers := stringSliceParam(params, "modifiers")
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.PressCombo(key, modifiers))
}

func (s *Service) handleUpload(params map[string]any) (any, error) {
	selector, err := requireString(params, "selector")
	if err != nil {
		return nil, err
	}
	path, err := requireString(params, "path")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}
	return okResult(session.Upload(selector, path))
}

func (s *Service) handleStateSave(params map[string]any) (any, error) {
	name, err := requireString(params, "name")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}

	cookies, err := session.Cookies()
	if err != nil {
		return nil, err
	}
	localStorage, err := session.LocalStorage()
	if err != nil {
		return nil, err
	}

	st := &state.AuthState{
		Cookies:      cookies,
		LocalStorage: *localStorage,
		SavedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Save(name, st); err != nil {
		return nil, err
	}

	s.logger.Infof("saved state %q (%d cookies)", name, len(cookies))
	return state.Summarize(name, st), nil
}

func (s *Service) handleStateLoad(params map[string]any) (any, error) {
	name, err := requireString(params, "name")
	if err != nil {
		return nil, err
	}
	session, err := s.manager.Resolve(sessionID(params))
	if err != nil {
		return nil, err
	}

	st, err := s.store.Load(name)
	if err != nil {
		return nil, err
	}

	if err := session.SetCookies(st.Cookies); err != nil {
		return nil, err
	}
	restored, err := session.ReplaceLocalStorage(st.LocalStorage.Items)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("loaded state %q (%d cookies, %d localStorage keys)", name, len(st.Cookies), restored)
	return map[string]any{
		"name":                   name,
		"cookies":                len(st.Cookies),
		"local_storage_restored": restored,
	}, nil
}

func (s *Service) handleStateList() (any, error) {
	return s.store.List()
}

func (s *Service) handleSessionNew(params map[string]any) (any, error) {
	id, _ := stringParam(params, "id")
	if id == "" {
		id = sessionID(params)
	}

	session, err := s.manager.CreateSession(id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"session_id": session.ID}, nil
}

func (s *Service) handleSessionList() (any, error) {
	return s.manager.Sessions(), nil
}

func (s *Service) handleSessionClose(params map[string]any) (any, error) {
	id, _ := stringParam(params, "id")
	if id == "" {
		id = sessionID(params)
	}

	if err := s.manager.CloseSession(id); err != nil {
		return nil, err
	}
	return map[string]any{"closed": id}, nil
}

func okResult(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true}, nil
}
