// Package highlight maps playback position to the word or line the UI should
// highlight during read-aloud narration.
//
// Two interchangeable strategies implement the [Mapper] contract:
//
//   - [BoundaryCounter] consumes word/sentence boundary markers emitted live
//     by a speech synthesizer. The current index only ever advances.
//   - [Schedule] resolves an elapsed playback time against a fixed table of
//     timed sections, for pre-recorded narration with known timings.
//
// Both are monotonic non-decreasing during a single forward playback pass.
// Backward seeks are handled by recomputation, never by assuming
// monotonicity: Schedule.Resolve is stateless, and a BoundaryCounter is
// Reset on replay.
package highlight

import (
	"sync"
	"time"
)

// Mapper resolves a continuous playback position to a highlight index.
type Mapper interface {
	// Resolve returns the index of the word or line to highlight at
	// position. Implementations that track external events may ignore
	// position entirely.
	Resolve(position time.Duration) int

	// Reset returns the mapper to the start of the content, for replay,
	// loop, or stop.
	Reset()
}

// BoundaryCounter is the event-driven strategy: an ordered, monotonically
// increasing count of boundary markers delivered as the voice plays.
// Suspending and resuming playback does not rewind the counter; a full
// stop/replay calls Reset.
//
// Safe for concurrent use.
type BoundaryCounter struct {
	mu      sync.Mutex
	current int
	marked  bool
}

// Compile-time interface check.
var _ Mapper = (*BoundaryCounter)(nil)

// NewBoundaryCounter returns a counter positioned at index 0 with no
// boundaries consumed yet.
func NewBoundaryCounter() *BoundaryCounter {
	return &BoundaryCounter{}
}

// Advance consumes one boundary marker and returns the new current index.
// The first boundary resolves to index 0, matching the first word spoken.
func (c *BoundaryCounter) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.marked {
		c.current++
	} else {
		c.marked = true
	}
	return c.current
}

// Resolve implements [Mapper]. The position argument is ignored; the latest
// consumed boundary determines the index.
func (c *BoundaryCounter) Resolve(time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Reset implements [Mapper], returning the counter to index 0.
func (c *BoundaryCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = 0
	c.marked = false
}
