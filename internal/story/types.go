// Package story provides the story content catalogue for social-story.
//
// Stories are authored as pages of display lines, optionally paired with a
// pre-recorded narration asset and a karaoke timing table that maps playback
// positions to line ranges. The catalogue is loaded before a reading session
// starts and served read-mostly afterwards.
//
// Supported sources:
//   - Native YAML library files ([LoadLibraryFile], [LoadLibraryFromReader])
//   - A directory of library files ([LoadDir])
//   - PostgreSQL ([NewPostgresStore]) for persistent deployments
//
// All store operations are safe for concurrent use.
package story

import (
	"strings"
	"time"

	"github.com/LiorLearning/social-story/internal/highlight"
)

// Story is one read-along story: ordered pages plus catalogue metadata.
type Story struct {
	// ID is a unique identifier. Auto-generated if empty during import.
	ID string `yaml:"id" json:"id"`

	// Title is the story's display title.
	Title string `yaml:"title" json:"title"`

	// Author is the story's author, if known.
	Author string `yaml:"author,omitempty" json:"author,omitempty"`

	// ReadingLevel labels the intended audience (e.g., "pre-k", "grade-1").
	ReadingLevel string `yaml:"reading_level,omitempty" json:"reading_level,omitempty"`

	// Voice is the preferred narration voice ID for this story.
	// An empty value falls back to the service default.
	Voice string `yaml:"voice,omitempty" json:"voice,omitempty"`

	// Tags are searchable labels for categorization.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Pages are the story's pages in reading order.
	Pages []Page `yaml:"pages" json:"pages"`
}

// Page is one page of a story: the lines shown on screen, an optional
// pre-recorded narration asset, and the timing table that drives read-along
// highlighting while that asset plays.
type Page struct {
	// Number is the page's position within the story, starting at 1.
	Number int `yaml:"number" json:"number"`

	// Lines are the display lines in reading order. Highlight indices refer
	// to positions in this slice.
	Lines []string `yaml:"lines" json:"lines"`

	// AudioURL points at the pre-recorded narration for this page.
	// Empty when the page is narrated live via voice synthesis.
	AudioURL string `yaml:"audio_url,omitempty" json:"audio_url,omitempty"`

	// Timings is the karaoke timing table for AudioURL. Each span covers a
	// contiguous range of lines during a playback interval. Empty when the
	// page has no pre-recorded narration.
	Timings []TimedSpan `yaml:"timings,omitempty" json:"timings,omitempty"`
}

// TimedSpan declares that a contiguous line range is being narrated during
// the playback interval [StartMS, EndMS).
type TimedSpan struct {
	// StartMS is the playback position at which the span begins, in
	// milliseconds (inclusive).
	StartMS int64 `yaml:"start_ms" json:"start_ms"`

	// EndMS is the playback position at which the span ends, in milliseconds
	// (exclusive). Must be greater than StartMS.
	EndMS int64 `yaml:"end_ms" json:"end_ms"`

	// FirstLine is the index of the first line the span covers.
	FirstLine int `yaml:"first_line" json:"first_line"`

	// LineCount is the number of contiguous lines the span covers.
	// Must be at least 1.
	LineCount int `yaml:"line_count" json:"line_count"`
}

// Text returns the page's lines joined with single spaces. This is the target
// text a reading attempt is scored against.
func (p Page) Text() string {
	return strings.Join(p.Lines, " ")
}

// HasTimings reports whether the page carries a karaoke timing table.
func (p Page) HasTimings() bool {
	return len(p.Timings) > 0
}

// Schedule builds the playback-position mapper for this page's timing table.
// It fails when the page has no timings or the table violates the schedule
// invariants (ordering, overlap, empty spans).
func (p Page) Schedule() (*highlight.Schedule, error) {
	sections := make([]highlight.Section, len(p.Timings))
	for i, span := range p.Timings {
		sections[i] = highlight.Section{
			Index:     i,
			Start:     time.Duration(span.StartMS) * time.Millisecond,
			End:       time.Duration(span.EndMS) * time.Millisecond,
			FirstLine: span.FirstLine,
			LineCount: span.LineCount,
		}
	}
	return highlight.NewSchedule(sections)
}

// Page returns the page with the given 1-based number, or false when the
// story has no such page.
func (s Story) Page(number int) (Page, bool) {
	for _, p := range s.Pages {
		if p.Number == number {
			return p, true
		}
	}
	return Page{}, false
}
