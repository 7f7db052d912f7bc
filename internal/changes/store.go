package changes

import (
	"bytes"
	"sort"
	"sync"
)

// Store holds at most one pending change per file. It is safe for concurrent
// use by multiple producers.
type Store struct {
	mu      sync.Mutex
	entries map[Key]Change
	// files maps the workspace relative target of every entry to its key,
	// so nested repositories cannot stage the same file under two keys.
	files map[string]Key
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]Change), files: make(map[string]Key)}
}

// Propose adds a change to the store. Re-proposing an identical change is a
// no-op and a change computed against the same baseline replaces the pending
// one. A change computed against a different baseline fails with a
// *ConflictError and leaves the store unchanged, as does a change whose file
// is already pending under another key.
func (s *Store) Propose(c Change) error {
	if err := c.validate(); err != nil {
		return err
	}
	c = c.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.Key()
	file := key.String()
	if other, ok := s.files[file]; ok && other != key {
		return &ConflictError{Key: key, Existing: s.entries[other], Proposed: c}
	}
	if existing, ok := s.entries[key]; ok {
		if existing.Baseline != c.Baseline {
			return &ConflictError{Key: key, Existing: existing, Proposed: c}
		}
		if bytes.Equal(existing.Content, c.Content) {
			return nil
		}
	}
	s.entries[key] = c
	s.files[file] = key
	return nil
}

// Get returns the pending change for key.
func (s *Store) Get(key Key) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[key]
	return c, ok
}

// Remove drops the pending change for key.
func (s *Store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		delete(s.files, key.String())
	}
}

// Len returns the number of pending changes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Changes returns the pending changes ordered by repository and path.
func (s *Store) Changes() []Change {
	s.mu.Lock()
	out := make([]Change, 0, len(s.entries))
	for _, c := range s.entries {
		out = append(out, c)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return lessKey(out[i].Key(), out[j].Key())
	})
	return out
}

// Repos returns the repositories that have pending changes.
func (s *Store) Repos() []string {
	seen := make(map[string]bool)
	var repos []string
	for _, c := range s.Changes() {
		if !seen[c.Repo] {
			seen[c.Repo] = true
			repos = append(repos, c.Repo)
		}
	}
	return repos
}

func lessKey(a, b Key) bool {
	if a.Repo != b.Repo {
		return a.Repo < b.Repo
	}
	return a.Path < b.Path
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
}
