package tracking

import (
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

// Result is the classifier's verdict for one observation.
type Result struct {
	At         time.Time      `json:"t"`
	Status     session.Status `json:"status"`
	Phase      Phase          `json:"phase"`
	EAR        float64        `json:"ear"`
	HeadOffset float64        `json:"head_offset"`
	HeadTurned bool           `json:"head_turned"`
	Blinks     int            `json:"blinks"`
}

// Classifier turns camera observations into a debounced verdict.
//
// Eye openness and head direction are judged separately: closures shorter
// than BlinkMax are blinks and stay Focused, a reopening must hold for
// OpenDebounce before Focused returns, and head direction only downgrades
// an otherwise focused open-eyed frame.
type Classifier struct {
	mu  sync.Mutex
	cfg Config

	phase  Phase
	status session.Status

	// At most one of these is set at a time.
	closureStartedAt time.Time
	reopenedAt       time.Time

	blinkCounted bool
	blinks       int
}

// NewClassifier creates a classifier in PhaseNoFace.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:    cfg,
		phase:  PhaseNoFace,
		status: session.StatusDistracted,
	}
}

// Observe classifies one observation.
func (c *Classifier) Observe(obs Observation) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := Result{At: obs.At, EAR: obs.EAR, HeadOffset: obs.HeadOffset}

	switch {
	case !obs.FaceFound:
		c.clearTimers()
		c.phase = PhaseNoFace
		c.status = session.StatusDistracted
	case obs.EAR <= c.cfg.EAROpen:
		c.observeClosed(obs.At)
	default:
		c.observeOpen(obs.At)
	}

	res.Phase = c.phase
	res.Status = c.status
	if c.phase == PhaseEyesOpenFocused && obs.HeadOffset > c.cfg.HeadTurn {
		res.Status = session.StatusDistracted
		res.HeadTurned = true
	}
	res.Blinks = c.blinks
	return res
}

func (c *Classifier) observeClosed(now time.Time) {
	if c.closureStartedAt.IsZero() {
		c.closureStartedAt = now
		c.reopenedAt = time.Time{}
		c.blinkCounted = false
	}
	closed := since(c.closureStartedAt, now)

	switch {
	case closed > c.cfg.ClosedLong:
		c.phase = PhaseEyesClosedLong
		c.status = session.StatusDistracted
	case closed > c.cfg.BlinkMin && closed <= c.cfg.BlinkMax:
		c.phase = PhaseEyesClosedShort
		c.status = session.StatusFocused
		if !c.blinkCounted {
			c.blinks++
			c.blinkCounted = true
		}
	case c.phase.closure():
		// Ambiguous duration inside an ongoing closure: hold.
	case c.phase == PhaseRecoveringOpen:
		c.status = session.StatusDistracted
	default:
		c.phase = PhaseEyesOpenFocused
		c.status = session.StatusFocused
	}
}

func (c *Classifier) observeOpen(now time.Time) {
	c.closureStartedAt = time.Time{}

	if !c.phase.closure() && c.phase != PhaseRecoveringOpen {
		c.phase = PhaseEyesOpenFocused
		c.status = session.StatusFocused
		return
	}

	if c.reopenedAt.IsZero() {
		c.reopenedAt = now
	}
	if since(c.reopenedAt, now) >= c.cfg.OpenDebounce {
		c.reopenedAt = time.Time{}
		c.phase = PhaseEyesOpenFocused
		c.status = session.StatusFocused
		return
	}
	c.phase = PhaseRecoveringOpen
	c.status = session.StatusDistracted
}

// Reset returns to PhaseNoFace. The blink count survives.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearTimers()
	c.phase = PhaseNoFace
	c.status = session.StatusDistracted
}

// Phase returns the current phase.
func (c *Classifier) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Blinks returns the number of blinks counted so far.
func (c *Classifier) Blinks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blinks
}

// Config returns the active thresholds.
func (c *Classifier) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig swaps thresholds without resetting state.
func (c *Classifier) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

func (c *Classifier) clearTimers() {
	c.closureStartedAt = time.Time{}
	c.reopenedAt = time.Time{}
	c.blinkCounted = false
}

// since returns now-t, clamped at zero for out-of-order samples.
func since(t, now time.Time) time.Duration {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d
}
