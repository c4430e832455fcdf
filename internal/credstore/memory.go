package credstore

import (
	"context"
	"maps"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore keeps credentials in process memory. Used by tests and by
// one-shot CLI runs that must not touch disk.
type MemoryStore struct {
	mu     sync.RWMutex
	fields map[string]string
	writes int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: map[string]string{}}
}

// Read returns the current snapshot.
func (s *MemoryStore) Read(context.Context) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fromFields(s.fields, zap.NewNop())
}

// Write replaces the snapshot.
func (s *MemoryStore) Write(_ context.Context, snap Snapshot) error {
	m, err := toFields(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fields = m
	s.writes++
	s.mu.Unlock()
	return nil
}

// Clear drops everything.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.fields = map[string]string{}
	s.mu.Unlock()
	return nil
}

// Fields returns a copy of the raw stored values.
func (s *MemoryStore) Fields() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.fields)
}

// Writes reports how many times Write succeeded.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
