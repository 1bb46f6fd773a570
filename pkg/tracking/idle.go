package tracking

import (
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

// IdleEvent is an edge-triggered activity notification.
type IdleEvent int

const (
	EventWarning    IdleEvent = iota + 1 // idle past IdleWarning
	EventDistracted                      // idle past IdleLimit
	EventRestored                        // activity after EventDistracted
)

func (e IdleEvent) String() string {
	switch e {
	case EventWarning:
		return "warning"
	case EventDistracted:
		return "distracted"
	case EventRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// IdleResult is the activity classifier's verdict.
type IdleResult struct {
	At      time.Time      `json:"t"`
	Status  session.Status `json:"status"`
	Phase   Phase          `json:"phase"`
	IdleFor time.Duration  `json:"idle_for"`
	Events  []IdleEvent    `json:"-"`
}

// IdlePolicy is the fixed idle-window classifier. Each event fires once per
// transition into its condition, however often Evaluate is called.
type IdlePolicy struct {
	mu    sync.Mutex
	cfg   Config
	phase Phase
}

// NewIdlePolicy creates a policy in PhaseActive.
func NewIdlePolicy(cfg Config) *IdlePolicy {
	return &IdlePolicy{cfg: cfg, phase: PhaseActive}
}

// Evaluate classifies the idle time between lastActivity and now.
func (p *IdlePolicy) Evaluate(now, lastActivity time.Time) IdleResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := since(lastActivity, now)
	res := IdleResult{At: now, IdleFor: idle, Status: session.StatusFocused}
	prev := p.phase

	switch {
	case idle > p.cfg.IdleLimit:
		p.phase = PhaseIdle
		res.Status = session.StatusDistracted
		if prev != PhaseIdle {
			res.Events = append(res.Events, EventDistracted)
		}
	case idle > p.cfg.IdleWarning:
		p.phase = PhaseWarned
		switch prev {
		case PhaseActive:
			res.Events = append(res.Events, EventWarning)
		case PhaseIdle:
			res.Events = append(res.Events, EventRestored)
		}
	default:
		p.phase = PhaseActive
		if prev == PhaseIdle {
			res.Events = append(res.Events, EventRestored)
		}
	}

	res.Phase = p.phase
	return res
}

// Phase returns the current phase.
func (p *IdlePolicy) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// SetConfig swaps thresholds without resetting state.
func (p *IdlePolicy) SetConfig(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}
