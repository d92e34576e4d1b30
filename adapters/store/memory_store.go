package store

import (
	"context"
	"sync"

	"github.com/bahodir0902/blogclient/ports"
)

// MemoryStore is an in-memory implementation of the CredentialStore
// interface. Credentials do not survive a process restart; it is intended for
// tests and ephemeral sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save writes both slots, overwriting any previous values.
func (s *MemoryStore) Save(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	s.refresh = refresh
	return nil
}

// Read returns the current slots.
func (s *MemoryStore) Read(ctx context.Context) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.access, s.refresh, nil
}

// Clear removes both slots.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	return nil
}

var _ ports.CredentialStore = (*MemoryStore)(nil)
