package store

import "sync"

// storeImpl guards a flat map with a single mutex. There is no per-key
// locking: the map is small enough that one exclusive guard around the
// whole map keeps every operation trivially atomic, and the critical
// section is never longer than the map mutation itself.
type storeImpl struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewStore creates a new empty in-memory store. The store is created
// once at server start and shared by all connections for the process
// lifetime.
func NewStore() IStore {
	return &storeImpl{
		data: make(map[string][]byte),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

// Thread-safety: Set is thread-safe. The value is copied so later caller
// mutations of the slice cannot tear a stored entry.
func (s *storeImpl) Set(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
}

// Thread-safety: Get is thread-safe. Callers must not modify the
// returned slice.
func (s *storeImpl) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	v, ok := s.data[key]
	s.mu.Unlock()
	return v, ok
}

// Thread-safety: Len is thread-safe.
func (s *storeImpl) Len() int {
	s.mu.Lock()
	n := len(s.data)
	s.mu.Unlock()
	return n
}
