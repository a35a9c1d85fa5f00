package browser

import (
	"fmt"
	"sort"
	"sync"
)

// Registry owns the set of live sessions. The default session is
// created with the registry and cannot be removed; every other session
// comes and goes through Add and Remove.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry seeded with the default session.
func NewRegistry(defaultSession *Session) *Registry {
	return &Registry{
		sessions: map[string]*Session{
			DefaultSessionID: defaultSession,
		},
	}
}

// Resolve returns the session for id. An empty id selects the default
// session. Callers resolve immediately before each operation rather
// than holding the handle across calls.
func (r *Registry) Resolve(id string) (*Session, error) {
	if id == "" {
		id = DefaultSessionID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return session, nil
}

// Has reports whether a session with id is registered.
func (r *Registry) Has(id string) bool {
	if id == "" {
		id = DefaultSessionID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.sessions[id]
	return exists
}

// Add registers a session under its id.
func (r *Registry) Add(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

// Remove detaches and returns the session with id. Removing the
// default session is refused. Removing an id that is not registered is
// a no-op and returns nil: closing an already-closed session succeeds.
func (r *Registry) Remove(id string) (*Session, error) {
	if id == "" || id == DefaultSessionID {
		return nil, ErrProtectedSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, nil
	}
	delete(r.sessions, id)
	return session, nil
}

// List returns information about all sessions, ordered by id.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, session := range r.sessions {
		infos = append(infos, SessionInfo{
			ID:         session.ID,
			CurrentURL: session.CurrentURL(),
			CreatedAt:  session.CreatedAt,
			LastUsedAt: session.LastUsedAt(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of registered sessions, the default included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
