package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/session"
)

// ActivityTracker classifies keyboard and mouse activity for a no-camera
// session.
type ActivityTracker struct {
	*base
	policy *IdlePolicy

	mu           sync.Mutex
	lastActivity time.Time
}

// NewActivityTracker creates a tracker for sess. The idle clock starts now.
func NewActivityTracker(cfg Config, sess *session.Session, opts ...Option) (*ActivityTracker, error) {
	b, _, err := newBase(cfg, sess, session.ModeNoCamera, opts)
	if err != nil {
		return nil, err
	}
	t := &ActivityTracker{
		base:         b,
		policy:       NewIdlePolicy(cfg),
		lastActivity: b.clock.Now(),
	}
	b.store(session.StatusFocused, PhaseActive)
	return t, nil
}

// RecordActivity notes input at time at and re-evaluates immediately.
// The last-activity time only moves forward.
func (t *ActivityTracker) RecordActivity(at time.Time) Update {
	t.mu.Lock()
	if at.After(t.lastActivity) {
		t.lastActivity = at
	}
	t.mu.Unlock()
	return t.evaluate(t.clock.Now(), false)
}

// LastActivity returns the latest recorded activity time.
func (t *ActivityTracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Run starts the session and the heartbeat and blocks until ctx is done or
// Stop is called. Each heartbeat re-evaluates idle time, so the verdict
// changes even when no input arrives.
func (t *ActivityTracker) Run(ctx context.Context) (session.Summary, error) {
	t.mu.Lock()
	t.lastActivity = t.clock.Now()
	t.mu.Unlock()
	return t.run(ctx, func(now time.Time) { t.evaluate(now, true) }, nil)
}

func (t *ActivityTracker) evaluate(now time.Time, heartbeat bool) Update {
	t.verdictMu.Lock()
	res := t.policy.Evaluate(now, t.LastActivity())
	t.store(res.Status, res.Phase)
	t.sess.UpdateStatus(res.Status)
	t.verdictMu.Unlock()

	for _, ev := range res.Events {
		t.alert(ev, res)
	}

	return t.publish(Update{
		At:        now,
		Status:    res.Status,
		Phase:     res.Phase,
		Heartbeat: heartbeat,
		IdleFor:   res.IdleFor,
	})
}

func (t *ActivityTracker) alert(ev IdleEvent, res IdleResult) {
	cfg := t.Config()
	a := notify.Alert{
		User:      t.sess.User(),
		SessionID: t.sess.ID(),
		Time:      res.At,
	}
	switch ev {
	case EventWarning:
		a.Kind = notify.KindWarning
		a.Title = "Are you still there?"
		a.Message = fmt.Sprintf("No activity for %d seconds.", int(res.IdleFor.Seconds()))
		a.Sound = cfg.WarningSound
	case EventDistracted:
		a.Kind = notify.KindDistracted
		a.Title = "Distraction detected"
		a.Message = fmt.Sprintf("No activity for %d seconds. Time is now counted as distracted.", int(res.IdleFor.Seconds()))
		a.Sound = cfg.AlertSound
	case EventRestored:
		a.Kind = notify.KindRestored
		a.Title = "Focus restored"
		a.Message = "Welcome back."
	default:
		return
	}
	t.log.Info("idle alert", "event", ev.String(), "idle_for", res.IdleFor)
	t.notifier.Notify(a)
}

// SetTuning applies non-zero tuning values to the running policy.
func (t *ActivityTracker) SetTuning(p TuningParams) (Config, error) {
	cfg, err := t.applyTuning(p)
	if err != nil {
		return cfg, err
	}
	t.policy.SetConfig(cfg)
	return cfg, nil
}
