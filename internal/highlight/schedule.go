package highlight

import (
	"fmt"
	"time"
)

// Section is one timed span of pre-recorded narration, covering a contiguous
// range of text lines.
type Section struct {
	// Index is the section's position in the schedule, starting at 0.
	Index int

	// Start is the playback time at which this section begins (inclusive).
	Start time.Duration

	// End is the playback time at which this section ends (exclusive).
	End time.Duration

	// FirstLine is the index of the first text line this section covers.
	FirstLine int

	// LineCount is the number of contiguous lines this section covers.
	// Must be at least 1.
	LineCount int
}

// Schedule is the table-driven strategy: a fixed, ordered list of timed
// sections covering the full narration, plus a static section-to-line-range
// mapping. Immutable once constructed, so Resolve is stateless and backward
// seeks cost nothing — the index is recomputed from scratch on every call.
type Schedule struct {
	sections []Section
}

// Compile-time interface check.
var _ Mapper = (*Schedule)(nil)

// NewSchedule validates and builds a Schedule. Sections must be non-empty,
// ordered by start time, non-overlapping, with End > Start and LineCount >= 1.
func NewSchedule(sections []Section) (*Schedule, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("highlight: schedule needs at least one section")
	}
	for i, s := range sections {
		if s.End <= s.Start {
			return nil, fmt.Errorf("highlight: section %d: end %v not after start %v", i, s.End, s.Start)
		}
		if s.LineCount < 1 {
			return nil, fmt.Errorf("highlight: section %d: line count %d < 1", i, s.LineCount)
		}
		if i > 0 && s.Start < sections[i-1].End {
			return nil, fmt.Errorf("highlight: section %d starts at %v before previous section ends at %v",
				i, s.Start, sections[i-1].End)
		}
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return &Schedule{sections: out}, nil
}

// Resolve maps an elapsed playback position to a line index.
//
// Positions before the first section resolve to line 0; positions past the
// last section clamp to the final line. Within a section the fractional
// progress through the section selects a line from the section's range:
// floor(progress * lineCount), clamped to the section's last line.
func (s *Schedule) Resolve(position time.Duration) int {
	first := s.sections[0]
	if position < first.Start {
		return 0
	}

	last := s.sections[len(s.sections)-1]
	if position >= last.End {
		return last.FirstLine + last.LineCount - 1
	}

	// Binary search for the section whose [Start, End) contains position.
	lo, hi := 0, len(s.sections)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		sec := s.sections[mid]
		switch {
		case position < sec.Start:
			hi = mid - 1
		case position >= sec.End:
			lo = mid + 1
		default:
			return lineWithin(sec, position)
		}
	}

	// Position falls in a gap between sections: stay on the last line of
	// the preceding section.
	prev := s.sections[hi]
	return prev.FirstLine + prev.LineCount - 1
}

// Reset implements [Mapper]. A Schedule holds no playback state, so Reset is
// a no-op; it exists so both strategies share one contract.
func (s *Schedule) Reset() {}

// Sections returns a copy of the schedule's section table.
func (s *Schedule) Sections() []Section {
	out := make([]Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// lineWithin picks the line inside sec proportional to how far position has
// progressed through the section's time span. Integer arithmetic keeps exact
// boundary positions on the correct side of the line split.
func lineWithin(sec Section, position time.Duration) int {
	elapsed := int64(position - sec.Start)
	span := int64(sec.End - sec.Start)
	line := sec.FirstLine + int(elapsed*int64(sec.LineCount)/span)
	lastLine := sec.FirstLine + sec.LineCount - 1
	if line > lastLine {
		line = lastLine
	}
	if line < sec.FirstLine {
		line = sec.FirstLine
	}
	return line
}
