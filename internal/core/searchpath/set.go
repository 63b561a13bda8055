package searchpath

import (
	"path/filepath"
	"slices"
	"sync"
)

// Set is an ordered set of directories. Insertion order is search priority.
// It is safe for concurrent use.
type Set struct {
	mu    sync.RWMutex
	paths []string
	seen  map[string]struct{}
}

// NewSet creates a Set holding paths in order, skipping duplicates.
func NewSet(paths ...string) *Set {
	s := &Set{seen: make(map[string]struct{})}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add appends path unless an equivalent path is already present. Empty paths
// are ignored. It reports whether the set changed.
func (s *Set) Add(path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[path]; ok {
		return false
	}
	s.seen[path] = struct{}{}
	s.paths = append(s.paths, path)
	return true
}

func (s *Set) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[filepath.Clean(path)]
	return ok
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// Paths returns a copy of the directories in priority order.
func (s *Set) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.paths)
}
