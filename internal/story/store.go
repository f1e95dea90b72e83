package story

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and Update when the requested story does not exist.
var ErrNotFound = errors.New("story not found")

// ErrDuplicateID is returned by Add when a story with the same ID already exists.
var ErrDuplicateID = errors.New("story with that ID already exists")

// ErrNoProgress is returned by [ProgressStore.Get] when a reader has no saved
// progress for a story.
var ErrNoProgress = errors.New("no saved progress")

// Store manages the story catalogue.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Add creates a new story. Returns the story with a generated ID if the
	// provided story's ID is empty.
	// Returns [ErrDuplicateID] if a story with the same non-empty ID exists.
	Add(ctx context.Context, s Story) (Story, error)

	// Get retrieves a story by ID.
	// Returns [ErrNotFound] when no story with that ID exists.
	Get(ctx context.Context, id string) (Story, error)

	// List returns all stories, optionally filtered by reading level and/or
	// tags. An empty [ListOptions] returns all stories.
	// Results order is not guaranteed.
	List(ctx context.Context, opts ListOptions) ([]Story, error)

	// Update replaces an existing story.
	// The story's ID must be non-empty.
	// Returns [ErrNotFound] when no story with that ID exists.
	Update(ctx context.Context, s Story) error

	// Remove deletes a story by ID.
	// Returns [ErrNotFound] when no story with that ID exists.
	Remove(ctx context.Context, id string) error

	// BulkImport adds multiple stories. Each story without an ID gets one
	// auto-generated. Returns the number of stories successfully imported
	// and any error that caused the import to abort early.
	BulkImport(ctx context.Context, stories []Story) (int, error)
}

// ListOptions narrows the result set of [Store.List].
// All non-zero fields are applied as AND conditions.
type ListOptions struct {
	// ReadingLevel restricts results to stories with this reading level.
	// An empty value matches all levels.
	ReadingLevel string

	// Tags restricts results to stories that carry all of the specified tags.
	// An empty slice matches all stories regardless of their tags.
	Tags []string
}

// Progress is a reader's saved position and accuracy for one story. It is
// written when a listening session stops and read back to resume where the
// reader left off.
type Progress struct {
	// ReaderID identifies the reader.
	ReaderID string `json:"reader_id"`

	// StoryID identifies the story.
	StoryID string `json:"story_id"`

	// PageNumber is the 1-based page the reader last worked on.
	PageNumber int `json:"page_number"`

	// Accuracy is the saved reading accuracy for that page, 0 to 100.
	Accuracy float64 `json:"accuracy"`

	// UpdatedAt is when the progress was last saved.
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressStore persists per-reader reading progress.
//
// All implementations must be safe for concurrent use.
type ProgressStore interface {
	// Save upserts the reader's progress for a story. The UpdatedAt field is
	// set by the store.
	Save(ctx context.Context, p Progress) error

	// Get returns the reader's saved progress for a story.
	// Returns [ErrNoProgress] when none has been saved.
	Get(ctx context.Context, readerID, storyID string) (Progress, error)

	// ListForReader returns all saved progress records for a reader.
	// Results order is not guaranteed.
	ListForReader(ctx context.Context, readerID string) ([]Progress, error)
}
