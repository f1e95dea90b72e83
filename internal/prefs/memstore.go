package prefs

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for tests and single-process deployments that do not need
// preferences to survive a restart. The zero value is ready to use.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Prefs
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]Prefs),
	}
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, readerID string) (Prefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[readerID]
	if !ok {
		return Defaults(), nil
	}
	return p, nil
}

// Put implements [Store.Put].
func (s *MemStore) Put(ctx context.Context, readerID string, p Prefs) error {
	if readerID == "" {
		return fmt.Errorf("prefs: reader ID must not be empty")
	}
	if err := Validate(p); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		s.records = make(map[string]Prefs)
	}
	s.records[readerID] = p
	return nil
}
