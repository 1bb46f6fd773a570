// Package tracking classifies focus from camera or activity signals and
// feeds the verdict into a session.
//
// Each tracker has two timing paths. The event path (ProcessObservation,
// RecordActivity) classifies and stores the verdict. The heartbeat in Run
// re-applies the stored verdict every Config.Heartbeat so time keeps
// accruing when no events arrive.
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

var (
	// ErrModeMismatch is returned when a tracker is given a session of the
	// other mode.
	ErrModeMismatch = errors.New("tracking: session mode does not match tracker")
	// ErrNoSession is returned when a tracker is built without a session.
	ErrNoSession = errors.New("tracking: session is required")
)

// Update is published to observers after every classification and heartbeat.
type Update struct {
	At        time.Time       `json:"t"`
	SessionID string          `json:"session_id"`
	Status    session.Status  `json:"status"`
	Phase     Phase           `json:"phase"`
	Heartbeat bool            `json:"heartbeat"`
	Result    *Result         `json:"result,omitempty"`   // camera only
	IdleFor   time.Duration   `json:"idle_for,omitempty"` // activity only
	Totals    session.Summary `json:"totals"`
}

// Option configures a tracker.
type Option func(*options)

type options struct {
	clock    clock.Clock
	log      *slog.Logger
	notifier notify.Notifier
	video    VideoSource
	detector detection.Detector
}

// WithClock sets the time source. It should match the session's clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithNotifier sets where idle alerts go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithCamera makes a CameraTracker sample frames itself while running.
func WithCamera(video VideoSource, det detection.Detector) Option {
	return func(o *options) {
		o.video = video
		o.detector = det
	}
}

// base holds what both trackers share: the session, the stored verdict,
// the observers and the run loop.
type base struct {
	cfgMu sync.RWMutex
	cfg   Config

	sess     *session.Session
	clock    clock.Clock
	log      *slog.Logger
	notifier notify.Notifier

	// verdictMu orders classify, store and commit across the event path
	// and the heartbeat so a stale verdict cannot land after a newer one.
	verdictMu sync.Mutex

	// Written by the event path, read by the heartbeat.
	verdict atomic.Int32
	phase   atomic.Int32

	obsMu     sync.RWMutex
	observers []func(Update)

	runMu    sync.Mutex
	started  bool
	stopped  bool
	ready    chan struct{}
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func newBase(cfg Config, sess *session.Session, mode session.Mode, opts []Option) (*base, options, error) {
	if sess == nil {
		return nil, options{}, ErrNoSession
	}
	if sess.Mode() != mode {
		return nil, options{}, ErrModeMismatch
	}
	if err := cfg.Validate(); err != nil {
		return nil, options{}, err
	}

	o := options{
		clock:    clock.System{},
		log:      slog.Default(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &base{
		cfg:      cfg,
		sess:     sess,
		clock:    o.clock,
		log:      o.log.With("component", "tracker", "mode", string(mode), "session", sess.ID()),
		notifier: o.notifier,
		ready:    make(chan struct{}),
		stop:     make(chan struct{}),
	}
	b.verdict.Store(int32(session.StatusDistracted))
	return b, o, nil
}

// Session returns the session being tracked.
func (b *base) Session() *session.Session { return b.sess }

// Snapshot returns the session totals so far.
func (b *base) Snapshot() session.Summary { return b.sess.Summary() }

// Status returns the last verdict.
func (b *base) Status() session.Status { return session.Status(b.verdict.Load()) }

// Phase returns the last classifier phase.
func (b *base) Phase() Phase { return Phase(b.phase.Load()) }

// Config returns the active thresholds.
func (b *base) Config() Config {
	b.cfgMu.RLock()
	defer b.cfgMu.RUnlock()
	return b.cfg
}

// OnUpdate registers an observer. Observers run on the caller's goroutine
// and must not block or call Stop.
func (b *base) OnUpdate(fn func(Update)) {
	b.obsMu.Lock()
	b.observers = append(b.observers, fn)
	b.obsMu.Unlock()
}

// Ready is closed once Run has started the session.
func (b *base) Ready() <-chan struct{} { return b.ready }

// Stop ends the run loop, finalises the session and returns the summary.
// It is safe to call more than once and before Run.
func (b *base) Stop() session.Summary {
	b.runMu.Lock()
	b.stopped = true
	started, done := b.started, b.done
	b.runMu.Unlock()

	b.stopOnce.Do(func() { close(b.stop) })
	if started {
		<-done
	}
	return b.sess.Stop()
}

func (b *base) store(status session.Status, phase Phase) {
	b.verdict.Store(int32(status))
	b.phase.Store(int32(phase))
}

// publish stamps u with the session id and running totals, hands it to
// the observers and returns the stamped copy.
func (b *base) publish(u Update) Update {
	u.SessionID = b.sess.ID()
	u.Totals = b.sess.Summary()

	b.obsMu.RLock()
	observers := b.observers
	b.obsMu.RUnlock()
	for _, fn := range observers {
		fn(u)
	}
	return u
}

func (b *base) begin() error {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.stopped {
		return session.ErrFinished
	}
	if b.started {
		return session.ErrAlreadyRunning
	}
	if err := b.sess.Start(); err != nil {
		return err
	}
	b.started = true
	b.done = make(chan struct{})
	close(b.ready)
	return nil
}

// run drives the heartbeat until ctx is cancelled or Stop is called. When
// sample is set it runs on its own ticker, concurrently with the heartbeat.
func (b *base) run(ctx context.Context, beat, sample func(now time.Time)) (session.Summary, error) {
	if err := b.begin(); err != nil {
		return b.sess.Summary(), err
	}
	defer close(b.done)

	cfg := b.Config()
	b.log.Info("tracker started",
		"heartbeat", cfg.Heartbeat,
		"sampling", sample != nil)

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if sample != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(cfg.DetectionInterval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					sample(b.clock.Now())
				}
			}
		}()
	}

	heartbeat := time.NewTicker(cfg.Heartbeat)
	defer heartbeat.Stop()

	beat(b.clock.Now())
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-b.stop:
			break loop
		case <-heartbeat.C:
			beat(b.clock.Now())
		}
	}

	cancel()
	wg.Wait()

	sum := b.sess.Stop()
	b.log.Info("tracker stopped", "score", sum.FocusScore)
	return sum, nil
}
