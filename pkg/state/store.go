// Package state persists named authentication states: the cookies and
// localStorage captured from a session, restorable into any session
// later. Each state is one JSON document on disk.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/browsergate/browsergate/pkg/browser"
)

// ErrStateNotFound is returned when loading a name that was never saved.
var ErrStateNotFound = errors.New("saved state not found")

// AuthState is the captured authentication material of one session.
type AuthState struct {
	Cookies      []browser.Cookie          `json:"cookies"`
	LocalStorage browser.LocalStorageState `json:"local_storage"`
	SavedAt      string                    `json:"saved_at"`
}

// Summary is the listing view of a saved state.
type Summary struct {
	Name    string   `json:"name"`
	Domains []string `json:"domains"`
	SavedAt string   `json:"saved_at"`
}

// Summarize builds the listing view for a state: the distinct cookie
// domains in first-seen order plus the capture timestamp.
func Summarize(name string, st *AuthState) Summary {
	seen := make(map[string]struct{})
	domains := []string{}
	for _, c := range st.Cookies {
		if c.Domain == "" {
			continue
		}
		if _, ok := seen[c.Domain]; ok {
			continue
		}
		seen[c.Domain] = struct{}{}
		domains = append(domains, c.Domain)
	}

	return Summary{Name: name, Domains: domains, SavedAt: st.SavedAt}
}

// Store reads and writes auth states under a single directory.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory not configured")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// pathFor maps a state name to its file, refusing names that would
// escape the store directory.
func (s *Store) pathFor(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid state name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// Save writes the state atomically (temp file + rename). An existing
// state with the same name is replaced.
func (s *Store) Save(name string, st *AuthState) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state %q: %w", name, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Load reads a saved state by name.
func (s *Store) Load(name string) (*AuthState, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrStateNotFound, name)
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st AuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state %q: %w", name, err)
	}
	return &st, nil
}

// List returns summaries of all saved states, sorted by name. Files
// that fail to parse are skipped rather than failing the listing.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	summaries := []Summary{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var st AuthState
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		summaries = append(summaries, Summarize(name, &st))
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}
