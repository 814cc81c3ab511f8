package cache

import (
	"strings"
	"sync"
)

// NameStore is a thread-safe run-scoped mapping from a normalized name to
// a remote id. It backs manufacturer dedup and media filename dedup: one
// store per concern, created at run start and never invalidated.
type NameStore struct {
	data  map[string]string
	mutex sync.RWMutex
}

// NewNameStore creates an empty name store
func NewNameStore() *NameStore {
	return &NameStore{
		data: make(map[string]string),
	}
}

// Key normalizes a name for use as a store key (trimmed, lower-cased)
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Get retrieves the id cached for a normalized key
func (s *NameStore) Get(key string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.data[key]
	return id, ok
}

// Set stores an id under a normalized key
func (s *NameStore) Set(key, id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = id
}

// size returns the current number of cached entries
func (s *NameStore) size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}
