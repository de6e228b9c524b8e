package collector

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mx      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entries ...Entry) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]Entry, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return append([]Entry{}, s.entries...), nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.entries = nil
	return nil
}
