package tracking

import (
	"testing"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

func secs(n int) time.Time { return t0.Add(time.Duration(n) * time.Second) }

func TestIdlePolicy_Bands(t *testing.T) {
	tests := []struct {
		name   string
		idle   time.Duration
		status session.Status
		phase  Phase
	}{
		{"active", 3 * time.Second, session.StatusFocused, PhaseActive},
		{"warning boundary", 10 * time.Second, session.StatusFocused, PhaseActive},
		{"warned", 15 * time.Second, session.StatusFocused, PhaseWarned},
		{"limit boundary", 20 * time.Second, session.StatusFocused, PhaseWarned},
		{"idle", 25 * time.Second, session.StatusDistracted, PhaseIdle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewIdlePolicy(DefaultConfig())
			res := p.Evaluate(t0.Add(tc.idle), t0)
			if res.Status != tc.status || res.Phase != tc.phase {
				t.Errorf("idle %v: got %v/%v, want %v/%v", tc.idle, res.Status, res.Phase, tc.status, tc.phase)
			}
			if res.IdleFor != tc.idle {
				t.Errorf("IdleFor: got %v, want %v", res.IdleFor, tc.idle)
			}
		})
	}
}

func TestIdlePolicy_EdgeTriggered(t *testing.T) {
	p := NewIdlePolicy(DefaultConfig())
	counts := map[IdleEvent]int{}

	// One evaluation per second for 25 seconds of idleness
	for s := 1; s <= 25; s++ {
		for _, ev := range p.Evaluate(secs(s), t0).Events {
			counts[ev]++
		}
	}
	if counts[EventWarning] != 1 {
		t.Errorf("warnings: got %d, want 1", counts[EventWarning])
	}
	if counts[EventDistracted] != 1 {
		t.Errorf("distracted: got %d, want 1", counts[EventDistracted])
	}

	// A single keypress at 25s, then ticks keep coming
	for s := 25; s <= 30; s++ {
		for _, ev := range p.Evaluate(secs(s), secs(25)).Events {
			counts[ev]++
		}
	}
	if counts[EventRestored] != 1 {
		t.Errorf("restored: got %d, want 1", counts[EventRestored])
	}
	if p.Phase() != PhaseActive {
		t.Errorf("phase: got %v, want active", p.Phase())
	}
}

func TestIdlePolicy_WarningOncePerEpisode(t *testing.T) {
	p := NewIdlePolicy(DefaultConfig())

	if ev := p.Evaluate(secs(12), t0).Events; len(ev) != 1 || ev[0] != EventWarning {
		t.Fatalf("first warning: got %v", ev)
	}
	if ev := p.Evaluate(secs(15), t0).Events; len(ev) != 0 {
		t.Errorf("repeat warning in same episode: %v", ev)
	}

	// Activity ends the episode quietly
	if ev := p.Evaluate(secs(16), secs(16)).Events; len(ev) != 0 {
		t.Errorf("return from warning should be silent, got %v", ev)
	}

	if ev := p.Evaluate(secs(28), secs(16)).Events; len(ev) != 1 || ev[0] != EventWarning {
		t.Errorf("new episode should warn again, got %v", ev)
	}
}

func TestIdlePolicy_JumpStraightToIdle(t *testing.T) {
	p := NewIdlePolicy(DefaultConfig())

	ev := p.Evaluate(secs(25), t0).Events
	if len(ev) != 1 || ev[0] != EventDistracted {
		t.Errorf("got %v, want only distracted", ev)
	}
}

func TestIdleEvent_String(t *testing.T) {
	if EventRestored.String() != "restored" || IdleEvent(0).String() != "unknown" {
		t.Errorf("unexpected names: %q %q", EventRestored, IdleEvent(0))
	}
}
