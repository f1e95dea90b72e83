package listen

import (
	"strings"
	"sync"
)

// Snapshot is a point-in-time view of the accumulated transcript.
type Snapshot struct {
	// Committed is everything the engine has finalized this session.
	// Append-only between resets; words here are never revised.
	Committed string

	// Interim is the latest provisional fragment, replaced wholesale on
	// every interim result and cleared when a final result arrives.
	Interim string
}

// Full joins committed and interim text for scoring against a target
// passage. Scoring the interim suffix too gives the child live per-word
// feedback before the engine commits.
func (s Snapshot) Full() string {
	switch {
	case s.Committed == "":
		return s.Interim
	case s.Interim == "":
		return s.Committed
	default:
		return s.Committed + " " + s.Interim
	}
}

// Accumulator merges the final results of a possibly-restarted sequence of
// underlying engine sessions into one logical transcript.
//
// The engine only finalizes a fragment immediately before ending a
// sub-session, so OnFinal is the sole durable carrier of progress across
// restarts: everything else about a sub-session is disposable.
//
// Safe for concurrent use.
type Accumulator struct {
	mu        sync.Mutex
	committed string
	interim   string
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// OnFinal appends the trimmed fragment to the committed transcript,
// separated by a single space, and clears the interim fragment. An empty
// fragment still clears the interim — the engine has superseded it.
func (a *Accumulator) OnFinal(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interim = ""
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	if a.committed == "" {
		a.committed = fragment
	} else {
		a.committed += " " + fragment
	}
}

// OnInterim replaces the interim fragment wholesale. The engine resends the
// whole growing utterance on each interim event, not a delta.
func (a *Accumulator) OnInterim(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interim = strings.TrimSpace(fragment)
}

// Reset clears both fields. Called when the target passage changes or the
// session is manually restarted.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.committed = ""
	a.interim = ""
}

// Snapshot returns the current committed and interim text.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Committed: a.committed, Interim: a.interim}
}
