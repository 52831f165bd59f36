package secrets

import "sync"

// MemoryStore keeps the token pair for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	pair *TokenPair
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// IsAvailable implements Store.
func (s *MemoryStore) IsAvailable() bool { return true }

// Save implements Store.
func (s *MemoryStore) Save(pair *TokenPair) error {
	if _, err := encodePair(pair); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pair
	s.pair = &cp
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load() (*TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return nil, ErrNotFound
	}
	cp := *s.pair
	return &cp, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
