package tracking

import (
	"context"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

// CameraTracker classifies camera observations for a camera-mode session.
type CameraTracker struct {
	*base
	classifier *Classifier
	perception *Perception
}

// NewCameraTracker creates a tracker for sess. Observations arrive through
// ProcessObservation, or from the frame source given with WithCamera.
func NewCameraTracker(cfg Config, sess *session.Session, opts ...Option) (*CameraTracker, error) {
	b, o, err := newBase(cfg, sess, session.ModeCamera, opts)
	if err != nil {
		return nil, err
	}
	t := &CameraTracker{
		base:       b,
		classifier: NewClassifier(cfg),
	}
	if o.video != nil && o.detector != nil {
		t.perception = NewPerception(o.video, o.detector, b.log)
	}
	b.store(session.StatusDistracted, PhaseNoFace)
	return t, nil
}

// ProcessObservation classifies obs, stores the verdict and applies it to
// the session.
func (t *CameraTracker) ProcessObservation(obs Observation) Update {
	t.verdictMu.Lock()
	res := t.classifier.Observe(obs)
	t.store(res.Status, res.Phase)
	t.sess.UpdateStatus(res.Status)
	t.verdictMu.Unlock()

	return t.publish(Update{
		At:     res.At,
		Status: res.Status,
		Phase:  res.Phase,
		Result: &res,
	})
}

// Blinks returns the blink count.
func (t *CameraTracker) Blinks() int { return t.classifier.Blinks() }

// Run starts the session and the heartbeat and blocks until ctx is done or
// Stop is called. It returns the final summary.
func (t *CameraTracker) Run(ctx context.Context) (session.Summary, error) {
	var sample func(time.Time)
	if t.perception != nil {
		sample = t.sample
	}
	return t.run(ctx, t.heartbeat, sample)
}

func (t *CameraTracker) heartbeat(now time.Time) {
	t.verdictMu.Lock()
	status, phase := t.Status(), t.Phase()
	t.sess.UpdateStatus(status)
	t.verdictMu.Unlock()

	t.publish(Update{At: now, Status: status, Phase: phase, Heartbeat: true})
}

func (t *CameraTracker) sample(now time.Time) {
	obs, err := t.perception.Sample(now)
	if err != nil {
		t.log.Debug("frame sample failed", "error", err)
	}
	t.ProcessObservation(obs)
}

// SetTuning applies non-zero tuning values to the running classifier.
func (t *CameraTracker) SetTuning(p TuningParams) (Config, error) {
	cfg, err := t.applyTuning(p)
	if err != nil {
		return cfg, err
	}
	t.classifier.SetConfig(cfg)
	return cfg, nil
}
