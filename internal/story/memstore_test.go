package story_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LiorLearning/social-story/internal/story"
)

func onePage(lines ...string) []story.Page {
	return []story.Page{{Number: 1, Lines: lines}}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with empty ID generates one", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		st := story.Story{Title: "The Brave Little Turtle", Pages: onePage("Once upon a time.")}
		got, err := s.Add(ctx, st)
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID == "" {
			t.Fatal("Add: expected generated ID, got empty string")
		}
	})

	t.Run("with explicit ID is preserved", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		st := story.Story{ID: "story-001", Title: "The Lost Balloon", Pages: onePage("Up it went.")}
		got, err := s.Add(ctx, st)
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID != "story-001" {
			t.Fatalf("Add: expected ID %q, got %q", "story-001", got.ID)
		}
	})

	t.Run("duplicate ID returns ErrDuplicateID", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		st := story.Story{ID: "dup-01", Title: "First", Pages: onePage("Hello.")}
		if _, err := s.Add(ctx, st); err != nil {
			t.Fatalf("Add first: unexpected error: %v", err)
		}
		_, err := s.Add(ctx, st)
		if !errors.Is(err, story.ErrDuplicateID) {
			t.Fatalf("Add duplicate: expected ErrDuplicateID, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := story.NewMemStore()
	added, _ := s.Add(ctx, story.Story{Title: "The Sleepy Owl", Pages: onePage("Hoot.")})

	t.Run("existing story", func(t *testing.T) {
		t.Parallel()
		got, err := s.Get(ctx, added.ID)
		if err != nil {
			t.Fatalf("Get: unexpected error: %v", err)
		}
		if got.Title != "The Sleepy Owl" {
			t.Fatalf("Get: expected title %q, got %q", "The Sleepy Owl", got.Title)
		}
	})

	t.Run("missing story returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := s.Get(ctx, "does-not-exist")
		if !errors.Is(err, story.ErrNotFound) {
			t.Fatalf("Get: expected ErrNotFound, got %v", err)
		}
	})
}

func TestListFilterByReadingLevel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := story.NewMemStore()
	fixtures := []story.Story{
		{Title: "Turtle", ReadingLevel: "pre-k", Pages: onePage("a")},
		{Title: "Balloon", ReadingLevel: "pre-k", Pages: onePage("b")},
		{Title: "Owl", ReadingLevel: "grade-1", Pages: onePage("c")},
	}
	for _, f := range fixtures {
		if _, err := s.Add(ctx, f); err != nil {
			t.Fatalf("setup Add: %v", err)
		}
	}

	tests := []struct {
		name      string
		level     string
		wantCount int
	}{
		{"no filter returns all", "", 3},
		{"pre-k filter", "pre-k", 2},
		{"grade-1 filter", "grade-1", 1},
		{"unknown level (none)", "grade-5", 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.List(ctx, story.ListOptions{ReadingLevel: tc.level})
			if err != nil {
				t.Fatalf("List: unexpected error: %v", err)
			}
			if len(got) != tc.wantCount {
				t.Fatalf("List(%s): expected %d, got %d", tc.level, tc.wantCount, len(got))
			}
		})
	}
}

func TestListFilterByTags(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := story.NewMemStore()
	fixtures := []story.Story{
		{Title: "Turtle", Tags: []string{"animals", "bedtime"}, Pages: onePage("a")},
		{Title: "Balloon", Tags: []string{"adventure"}, Pages: onePage("b")},
		{Title: "Owl", Tags: []string{"animals", "night"}, Pages: onePage("c")},
	}
	for _, f := range fixtures {
		if _, err := s.Add(ctx, f); err != nil {
			t.Fatalf("setup Add: %v", err)
		}
	}

	tests := []struct {
		name      string
		tags      []string
		wantCount int
	}{
		{"animals tag", []string{"animals"}, 2},
		{"animals+night", []string{"animals", "night"}, 1},
		{"adventure tag", []string{"adventure"}, 1},
		{"non-existent tag", []string{"space"}, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.List(ctx, story.ListOptions{Tags: tc.tags})
			if err != nil {
				t.Fatalf("List: unexpected error: %v", err)
			}
			if len(got) != tc.wantCount {
				t.Fatalf("List(tags=%v): expected %d, got %d", tc.tags, tc.wantCount, len(got))
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("updates existing story", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		added, _ := s.Add(ctx, story.Story{Title: "Old Title", Pages: onePage("a")})
		added.Title = "New Title"
		if err := s.Update(ctx, added); err != nil {
			t.Fatalf("Update: unexpected error: %v", err)
		}
		got, _ := s.Get(ctx, added.ID)
		if got.Title != "New Title" {
			t.Fatalf("Update: expected title %q, got %q", "New Title", got.Title)
		}
	})

	t.Run("missing story returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		err := s.Update(ctx, story.Story{ID: "ghost", Title: "Ghost", Pages: onePage("a")})
		if !errors.Is(err, story.ErrNotFound) {
			t.Fatalf("Update: expected ErrNotFound, got %v", err)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("removes existing story", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		added, _ := s.Add(ctx, story.Story{Title: "Temporary", Pages: onePage("a")})
		if err := s.Remove(ctx, added.ID); err != nil {
			t.Fatalf("Remove: unexpected error: %v", err)
		}
		if _, err := s.Get(ctx, added.ID); !errors.Is(err, story.ErrNotFound) {
			t.Fatalf("Get after Remove: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing story returns ErrNotFound", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemStore()
		err := s.Remove(ctx, "missing-id")
		if !errors.Is(err, story.ErrNotFound) {
			t.Fatalf("Remove: expected ErrNotFound, got %v", err)
		}
	})
}

func TestBulkImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := story.NewMemStore()

	batch := []story.Story{
		{Title: "Alpha", Pages: onePage("a")},
		{Title: "Beta", Pages: onePage("b")},
		{Title: "Gamma", Pages: onePage("c")},
	}

	n, err := s.BulkImport(ctx, batch)
	if err != nil {
		t.Fatalf("BulkImport: unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("BulkImport: expected 3, got %d", n)
	}

	all, _ := s.List(ctx, story.ListOptions{})
	if len(all) != 3 {
		t.Fatalf("BulkImport: expected 3 stories in store, got %d", len(all))
	}
}

func TestProgressStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("save then get", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemProgressStore()
		err := s.Save(ctx, story.Progress{
			ReaderID:   "reader-1",
			StoryID:    "story-1",
			PageNumber: 3,
			Accuracy:   87.5,
		})
		if err != nil {
			t.Fatalf("Save: unexpected error: %v", err)
		}

		got, err := s.Get(ctx, "reader-1", "story-1")
		if err != nil {
			t.Fatalf("Get: unexpected error: %v", err)
		}
		if got.PageNumber != 3 {
			t.Fatalf("PageNumber = %d, want 3", got.PageNumber)
		}
		if got.Accuracy != 87.5 {
			t.Fatalf("Accuracy = %v, want 87.5", got.Accuracy)
		}
		if got.UpdatedAt.IsZero() {
			t.Fatal("UpdatedAt not set by Save")
		}
	})

	t.Run("save overwrites previous progress", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemProgressStore()
		_ = s.Save(ctx, story.Progress{ReaderID: "r", StoryID: "st", PageNumber: 1, Accuracy: 50})
		_ = s.Save(ctx, story.Progress{ReaderID: "r", StoryID: "st", PageNumber: 2, Accuracy: 90})

		got, err := s.Get(ctx, "r", "st")
		if err != nil {
			t.Fatalf("Get: unexpected error: %v", err)
		}
		if got.PageNumber != 2 || got.Accuracy != 90 {
			t.Fatalf("got page %d accuracy %v, want page 2 accuracy 90", got.PageNumber, got.Accuracy)
		}
	})

	t.Run("missing progress returns ErrNoProgress", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemProgressStore()
		_, err := s.Get(ctx, "reader-x", "story-x")
		if !errors.Is(err, story.ErrNoProgress) {
			t.Fatalf("Get: expected ErrNoProgress, got %v", err)
		}
	})

	t.Run("missing IDs rejected", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemProgressStore()
		if err := s.Save(ctx, story.Progress{StoryID: "st"}); err == nil {
			t.Fatal("Save without reader ID: expected error, got nil")
		}
		if err := s.Save(ctx, story.Progress{ReaderID: "r"}); err == nil {
			t.Fatal("Save without story ID: expected error, got nil")
		}
	})

	t.Run("list for reader", func(t *testing.T) {
		t.Parallel()
		s := story.NewMemProgressStore()
		_ = s.Save(ctx, story.Progress{ReaderID: "r1", StoryID: "a", PageNumber: 1})
		_ = s.Save(ctx, story.Progress{ReaderID: "r1", StoryID: "b", PageNumber: 2})
		_ = s.Save(ctx, story.Progress{ReaderID: "r2", StoryID: "a", PageNumber: 5})

		got, err := s.ListForReader(ctx, "r1")
		if err != nil {
			t.Fatalf("ListForReader: unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListForReader(r1): expected 2 records, got %d", len(got))
		}
	})
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	const goroutines = 50
	ctx := context.Background()
	s := story.NewMemStore()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			st, err := s.Add(ctx, story.Story{
				Title: "Concurrent Story",
				Pages: onePage("line"),
			})
			if err != nil {
				return // unlikely in this test; just skip
			}
			_, _ = s.Get(ctx, st.ID)
			_, _ = s.List(ctx, story.ListOptions{})
			_ = s.Update(ctx, story.Story{ID: st.ID, Title: "Updated", Pages: onePage("line")})
			_ = s.Remove(ctx, st.ID)
		}()
	}

	wg.Wait()
}
