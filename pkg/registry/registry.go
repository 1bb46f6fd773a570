// Package registry owns the running focus sessions of a server: at most
// one active session per user, each driven by its own tracker goroutine.
// Finished summaries are kept for result lookups.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

const defaultKeepFinished = 100

var (
	ErrNotFound   = errors.New("registry: session not found")
	ErrUserActive = errors.New("registry: user already has an active session")
	ErrWrongMode  = errors.New("registry: session has the other mode")
	ErrClosed     = errors.New("registry: closed")
)

// Tracker is what the registry needs from tracking.CameraTracker and
// tracking.ActivityTracker.
type Tracker interface {
	Run(ctx context.Context) (session.Summary, error)
	Stop() session.Summary
	Snapshot() session.Summary
	Status() session.Status
	Phase() tracking.Phase
	OnUpdate(fn func(tracking.Update))
	Ready() <-chan struct{}
	Tuning() tracking.TuningParams
	SetTuning(p tracking.TuningParams) (tracking.Config, error)
}

// Entry is one active session.
type Entry struct {
	ID      string
	User    string
	Mode    session.Mode
	Tracker Tracker

	camera   *tracking.CameraTracker
	activity *tracking.ActivityTracker
	done     chan struct{}
}

// Camera returns the camera tracker of a camera-mode entry.
func (e *Entry) Camera() (*tracking.CameraTracker, error) {
	if e.camera == nil {
		return nil, ErrWrongMode
	}
	return e.camera, nil
}

// Activity returns the activity tracker of a no-camera entry.
func (e *Entry) Activity() (*tracking.ActivityTracker, error) {
	if e.activity == nil {
		return nil, ErrWrongMode
	}
	return e.activity, nil
}

// Done is closed once the tracker's run loop has returned.
func (e *Entry) Done() <-chan struct{} { return e.done }

// StartRequest describes a new session.
type StartRequest struct {
	User      string  `json:"user"`
	GoalHours float64 `json:"goal"`
	Mode      string  `json:"mode"`
	Preset    string  `json:"preset,omitempty"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder sets the persistence sink for every session.
func WithRecorder(r session.Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithNotifier sets the alert sink for every session and tracker.
func WithNotifier(n notify.Notifier) Option {
	return func(reg *Registry) { reg.notifier = n }
}

// WithClock sets the clock for sessions and trackers.
func WithClock(c clock.Clock) Option {
	return func(reg *Registry) {
		if c != nil {
			reg.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.log = l
		}
	}
}

// WithObserver registers fn on every tracker the registry creates.
func WithObserver(fn func(tracking.Update)) Option {
	return func(reg *Registry) { reg.observers = append(reg.observers, fn) }
}

// WithCamera makes camera sessions sample a local frame source instead of
// waiting for posted observations. Only one camera session can use it at a
// time.
func WithCamera(video tracking.VideoSource, det detection.Detector) Option {
	return func(reg *Registry) {
		reg.video = video
		reg.detector = det
	}
}

// WithDistractionAlert sets the distraction streak that alerts in every
// session.
func WithDistractionAlert(threshold time.Duration) Option {
	return func(reg *Registry) {
		reg.sessionOpts = append(reg.sessionOpts, session.WithDistractionAlert(threshold))
	}
}

// WithKeepFinished bounds how many finished summaries are remembered.
func WithKeepFinished(n int) Option {
	return func(reg *Registry) {
		if n > 0 {
			reg.keep = n
		}
	}
}

// Registry tracks active sessions by id with a per-user index.
type Registry struct {
	cfg       tracking.Config
	recorder  session.Recorder
	notifier  notify.Notifier
	clock     clock.Clock
	log       *slog.Logger
	observers []func(tracking.Update)
	video     tracking.VideoSource
	detector  detection.Detector
	keep      int

	sessionOpts []session.Option

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	cameraUse string
	active    map[string]*Entry
	byUser    map[string]string
	finished  map[string]session.Summary
	order     []string
}

// New creates a registry whose trackers use cfg unless a request names a
// preset.
func New(cfg tracking.Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		cfg:      cfg,
		clock:    clock.System{},
		log:      slog.Default(),
		keep:     defaultKeepFinished,
		active:   make(map[string]*Entry),
		byUser:   make(map[string]string),
		finished: make(map[string]session.Summary),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "registry")
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Start creates a session for req and runs its tracker in the background.
func (r *Registry) Start(req StartRequest) (*Entry, error) {
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	cfg := r.cfg
	if req.Preset != "" {
		if cfg, err = tracking.GetPreset(req.Preset); err != nil {
			return nil, err
		}
	}

	opts := append([]session.Option{
		session.WithClock(r.clock),
		session.WithRecorder(r.recorder),
		session.WithNotifier(r.notifier),
		session.WithLogger(r.log),
	}, r.sessionOpts...)
	sess, err := session.New(req.User, mode, req.GoalHours, opts...)
	if err != nil {
		return nil, err
	}

	e, err := r.register(sess, mode, cfg)
	if err != nil {
		return nil, err
	}

	// Observations posted right after Start must land on a running session
	select {
	case <-e.Tracker.Ready():
	case <-e.done:
	}

	r.log.Info("session registered", "session", e.ID, "user", e.User, "mode", mode)
	return e, nil
}

// register builds the tracker for sess and launches it.
func (r *Registry) register(sess *session.Session, mode session.Mode, cfg tracking.Config) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if id, ok := r.byUser[sess.User()]; ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUserActive, sess.User(), id)
	}

	opts := []tracking.Option{
		tracking.WithClock(r.clock),
		tracking.WithLogger(r.log),
		tracking.WithNotifier(r.notifier),
	}
	e := &Entry{ID: sess.ID(), User: sess.User(), Mode: mode, done: make(chan struct{})}
	switch mode {
	case session.ModeCamera:
		if r.video != nil && r.cameraUse == "" {
			opts = append(opts, tracking.WithCamera(r.video, r.detector))
			r.cameraUse = e.ID
		}
		t, err := tracking.NewCameraTracker(cfg, sess, opts...)
		if err != nil {
			r.releaseCamera(e.ID)
			return nil, err
		}
		e.camera, e.Tracker = t, t
	default:
		t, err := tracking.NewActivityTracker(cfg, sess, opts...)
		if err != nil {
			return nil, err
		}
		e.activity, e.Tracker = t, t
	}
	for _, fn := range r.observers {
		e.Tracker.OnUpdate(fn)
	}

	r.active[e.ID] = e
	r.byUser[e.User] = e.ID
	r.wg.Add(1)
	go r.run(e)
	return e, nil
}

func (r *Registry) run(e *Entry) {
	defer r.wg.Done()
	defer close(e.done)

	sum, err := e.Tracker.Run(r.ctx)
	if err != nil {
		r.log.Warn("tracker run ended with error", "session", e.ID, "error", err)
		sum = e.Tracker.Stop()
	}
	r.finish(e, sum)
}

// finish moves e from active to finished. It is idempotent.
func (r *Registry) finish(e *Entry, sum session.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[e.ID] != e {
		return
	}
	delete(r.active, e.ID)
	if r.byUser[e.User] == e.ID {
		delete(r.byUser, e.User)
	}
	r.releaseCamera(e.ID)

	r.finished[e.ID] = sum
	r.order = append(r.order, e.ID)
	for len(r.order) > r.keep {
		delete(r.finished, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Registry) releaseCamera(id string) {
	if r.cameraUse == id {
		r.cameraUse = ""
	}
}

// Stop ends the session id and returns its final summary. Stopping a
// finished session returns the stored summary.
func (r *Registry) Stop(id string) (session.Summary, error) {
	r.mu.Lock()
	e, ok := r.active[id]
	if !ok {
		sum, done := r.finished[id]
		r.mu.Unlock()
		if !done {
			return session.Summary{}, ErrNotFound
		}
		return sum, nil
	}
	r.mu.Unlock()

	sum := e.Tracker.Stop()
	r.finish(e, sum)
	return sum, nil
}

// StopUser stops the active session of user, if any.
func (r *Registry) StopUser(user string) (session.Summary, error) {
	e, ok := r.ActiveForUser(user)
	if !ok {
		return session.Summary{}, ErrNotFound
	}
	return r.Stop(e.ID)
}

// Get returns the active entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[id]
	return e, ok
}

// ActiveForUser returns the active entry of user.
func (r *Registry) ActiveForUser(user string) (*Entry, bool) {
	user = strings.ToLower(strings.TrimSpace(user))
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUser[user]
	if !ok {
		return nil, false
	}
	return r.active[id], true
}

// Summary returns a live snapshot of an active session or the final
// summary of a finished one.
func (r *Registry) Summary(id string) (session.Summary, error) {
	r.mu.Lock()
	e, ok := r.active[id]
	sum, done := r.finished[id]
	r.mu.Unlock()

	switch {
	case ok:
		return e.Tracker.Snapshot(), nil
	case done:
		return sum, nil
	}
	return session.Summary{}, ErrNotFound
}

// Active returns snapshots of every active session ordered by user.
func (r *Registry) Active() []session.Summary {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.active))
	for _, e := range r.active {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]session.Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Tracker.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// Close stops every active session and waits for their run loops, or for
// ctx to end. No sessions can be started afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := make([]*Entry, 0, len(r.active))
	for _, e := range r.active {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		r.finish(e, e.Tracker.Stop())
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("registry closed", "stopped", len(entries))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
