package story

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Compile-time assertions.
var (
	_ Store         = (*MemStore)(nil)
	_ ProgressStore = (*MemProgressStore)(nil)
)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is the backing store for YAML-loaded libraries and for testing.
// The zero value is ready to use.
type MemStore struct {
	mu      sync.RWMutex
	stories map[string]Story
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		stories: make(map[string]Story),
	}
}

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, st Story) (Story, error) {
	if st.ID == "" {
		id, err := generateID()
		if err != nil {
			return Story{}, fmt.Errorf("story: generate id: %w", err)
		}
		st.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stories == nil {
		s.stories = make(map[string]Story)
	}

	if _, exists := s.stories[st.ID]; exists {
		return Story{}, ErrDuplicateID
	}

	s.stories[st.ID] = st
	return st, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stories[id]
	if !ok {
		return Story{}, ErrNotFound
	}
	return st, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Story, 0, len(s.stories))
	for _, st := range s.stories {
		if !matchesOpts(st, opts) {
			continue
		}
		result = append(result, st)
	}
	return result, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, st Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stories[st.ID]; !ok {
		return ErrNotFound
	}

	s.stories[st.ID] = st
	return nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stories[id]; !ok {
		return ErrNotFound
	}

	delete(s.stories, id)
	return nil
}

// BulkImport implements [Store.BulkImport].
// The import is best-effort: stories are added one at a time and the count of
// successfully added stories is returned along with the first error encountered.
func (s *MemStore) BulkImport(ctx context.Context, stories []Story) (int, error) {
	count := 0
	for _, st := range stories {
		if _, err := s.Add(ctx, st); err != nil {
			return count, fmt.Errorf("story: bulk import at index %d (title %q): %w", count, st.Title, err)
		}
		count++
	}
	return count, nil
}

// MemProgressStore is a thread-safe, in-memory implementation of
// [ProgressStore]. The zero value is ready to use.
type MemProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]Progress
}

type progressKey struct {
	readerID string
	storyID  string
}

// NewMemProgressStore returns an initialised [MemProgressStore].
func NewMemProgressStore() *MemProgressStore {
	return &MemProgressStore{
		records: make(map[progressKey]Progress),
	}
}

// Save implements [ProgressStore.Save].
func (s *MemProgressStore) Save(ctx context.Context, p Progress) error {
	if p.ReaderID == "" || p.StoryID == "" {
		return fmt.Errorf("story: progress needs reader and story IDs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records == nil {
		s.records = make(map[progressKey]Progress)
	}

	p.UpdatedAt = time.Now()
	s.records[progressKey{p.ReaderID, p.StoryID}] = p
	return nil
}

// Get implements [ProgressStore.Get].
func (s *MemProgressStore) Get(ctx context.Context, readerID, storyID string) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[progressKey{readerID, storyID}]
	if !ok {
		return Progress{}, ErrNoProgress
	}
	return p, nil
}

// ListForReader implements [ProgressStore.ListForReader].
func (s *MemProgressStore) ListForReader(ctx context.Context, readerID string) ([]Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Progress
	for key, p := range s.records {
		if key.readerID == readerID {
			result = append(result, p)
		}
	}
	return result, nil
}

// generateID produces a random 16-byte hex string using crypto/rand.
// The resulting string is 32 hex characters and is statistically unique.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// matchesOpts reports whether st satisfies all conditions in opts.
func matchesOpts(st Story, opts ListOptions) bool {
	if opts.ReadingLevel != "" && st.ReadingLevel != opts.ReadingLevel {
		return false
	}
	for _, want := range opts.Tags {
		if !slices.Contains(st.Tags, want) {
			return false
		}
	}
	return true
}
