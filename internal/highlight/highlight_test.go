package highlight

import (
	"testing"
	"time"
)

func TestBoundaryCounter_FirstBoundaryIsIndexZero(t *testing.T) {
	t.Parallel()

	c := NewBoundaryCounter()
	if got := c.Resolve(0); got != 0 {
		t.Errorf("Resolve before any boundary = %d, want 0", got)
	}
	if got := c.Advance(); got != 0 {
		t.Errorf("first Advance = %d, want 0", got)
	}
	if got := c.Advance(); got != 1 {
		t.Errorf("second Advance = %d, want 1", got)
	}
	if got := c.Resolve(42 * time.Second); got != 1 {
		t.Errorf("Resolve = %d, want 1 (position is ignored)", got)
	}
}

func TestBoundaryCounter_MonotonicWithinPass(t *testing.T) {
	t.Parallel()

	c := NewBoundaryCounter()
	prev := -1
	for i := 0; i < 50; i++ {
		got := c.Advance()
		if got <= prev {
			t.Fatalf("Advance returned %d after %d; counter must never decrease", got, prev)
		}
		prev = got
	}
}

func TestBoundaryCounter_Reset(t *testing.T) {
	t.Parallel()

	c := NewBoundaryCounter()
	c.Advance()
	c.Advance()
	c.Advance()

	c.Reset()
	if got := c.Resolve(0); got != 0 {
		t.Errorf("Resolve after Reset = %d, want 0", got)
	}
	if got := c.Advance(); got != 0 {
		t.Errorf("Advance after Reset = %d, want 0 (replay restarts the pass)", got)
	}
}
