package clock

import (
	"testing"
	"time"
)

func TestManual_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if got := c.Advance(1500 * time.Millisecond); !got.Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Advance returned %v", got)
	}

	// Backwards moves are ignored
	c.Set(start)
	if !c.Now().Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Expected clock to stay put, got %v", c.Now())
	}

	c.Set(start.Add(time.Minute))
	if !c.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("Expected %v, got %v", start.Add(time.Minute), c.Now())
	}

	// Negative advance is a no-op
	c.Advance(-time.Second)
	if !c.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("Negative advance moved the clock to %v", c.Now())
	}
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	if got.Before(before) {
		t.Errorf("System clock went backwards: %v < %v", got, before)
	}
}
