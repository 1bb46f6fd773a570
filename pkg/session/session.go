// Package session turns a stream of focus verdicts into elapsed-time totals.
//
// Time is attributed only inside UpdateStatus and Stop: the interval since the
// previous call is credited to the status that was committed at its start.
// Callers must therefore call UpdateStatus at least once per second (the
// trackers run a heartbeat for this) or transitions are under-resolved.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/pkg/notify"
)

// DefaultDistractionAlert is how long a distraction streak may last before
// the user is alerted.
const DefaultDistractionAlert = 2 * time.Minute

type lifecycle int

const (
	stateIdle lifecycle = iota
	stateRunning
	stateStopped
)

// Session accounts focused and distracted time for one run.
type Session struct {
	id        string
	user      string
	mode      Mode
	goalHours float64

	clock    clock.Clock
	recorder Recorder
	notifier notify.Notifier
	log      *slog.Logger

	streakThreshold time.Duration

	mu         sync.Mutex
	state      lifecycle
	startedAt  time.Time
	endedAt    time.Time
	lastUpdate time.Time
	focused    float64
	distracted float64
	current    Status

	streak        float64
	streakAlerted bool
	goalAlerted   bool

	final *Summary
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder sets the persistence sink.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithNotifier sets the alert sink.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithDistractionAlert sets the streak length that triggers an alert.
// Zero disables streak alerts.
func WithDistractionAlert(threshold time.Duration) Option {
	return func(s *Session) {
		s.streakThreshold = threshold
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithID sets the session id. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New creates a session that has not started yet.
func New(user string, mode Mode, goalHours float64, opts ...Option) (*Session, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return nil, ErrInvalidUser
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if !(goalHours > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidGoal, goalHours)
	}

	s := &Session{
		id:              uuid.New().String(),
		user:            user,
		mode:            mode,
		goalHours:       goalHours,
		clock:           clock.System{},
		recorder:        nopRecorder{},
		notifier:        notify.Nop{},
		log:             slog.Default(),
		streakThreshold: DefaultDistractionAlert,
		current:         StatusNotStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id, "user", s.user, "mode", s.mode)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// User returns the normalised user name.
func (s *Session) User() string { return s.user }

// Mode returns the tracking mode.
func (s *Session) Mode() Mode { return s.mode }

// GoalHours returns the focus goal.
func (s *Session) GoalHours() float64 { return s.goalHours }

// Start begins time accounting. The initial status is Distracted: no time is
// credited as focused until a verdict says so.
func (s *Session) Start() error {
	s.mu.Lock()
	switch s.state {
	case stateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case stateStopped:
		s.mu.Unlock()
		return ErrFinished
	}

	now := s.clock.Now()
	s.startedAt = now
	s.lastUpdate = now
	s.current = StatusDistracted
	s.state = stateRunning
	rec := s.timelineLocked(now, s.current)
	s.mu.Unlock()

	s.recorder.RecordTimeline(rec)
	s.log.Info("session started", "goal_hours", s.goalHours)
	return nil
}

// UpdateStatus credits the time since the last update to the previously
// committed status and commits status. It is a no-op unless running.
func (s *Session) UpdateStatus(status Status) {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return
	}
	if status != StatusFocused && status != StatusDistracted {
		status = s.current
	}

	changed := status != s.current
	alerts := s.advanceLocked(s.clock.Now(), status)
	var rec TimelineRecord
	if changed {
		rec = s.timelineLocked(s.lastUpdate, status)
	}
	s.mu.Unlock()

	if changed {
		s.recorder.RecordTimeline(rec)
		s.log.Debug("status changed", "status", status)
	}
	for _, a := range alerts {
		s.notifier.Notify(a)
	}
}

// Stop flushes the trailing interval, finalises the session and records the
// summary. Further calls return the same summary.
func (s *Session) Stop() Summary {
	s.mu.Lock()
	if s.state != stateRunning {
		sum := s.snapshotLocked()
		if s.final != nil {
			sum = *s.final
		}
		s.mu.Unlock()
		return sum
	}

	now := s.clock.Now()
	alerts := s.advanceLocked(now, s.current)
	s.state = stateStopped
	s.endedAt = now
	sum := s.snapshotLocked()
	s.final = &sum
	s.mu.Unlock()

	for _, a := range alerts {
		s.notifier.Notify(a)
	}
	s.recorder.RecordSummary(sum)
	s.log.Info("session stopped",
		"focused_seconds", int(sum.FocusedSeconds),
		"distracted_seconds", int(sum.DistractedSeconds),
		"score", sum.FocusScore,
		"goal_achieved", sum.GoalAchieved)
	return sum
}

// Score returns focused time as an integer percentage of tracked time.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return score(s.focused, s.distracted)
}

// Summary returns a snapshot. It never mutates the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final != nil {
		return *s.final
	}
	return s.snapshotLocked()
}

// Status returns the committed status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Running reports whether the session is accounting time.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// advanceLocked is the single point where time is attributed.
func (s *Session) advanceLocked(now time.Time, next Status) []notify.Alert {
	elapsed := now.Sub(s.lastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	var alerts []notify.Alert
	if s.current == StatusFocused {
		s.focused += elapsed
	} else {
		s.distracted += elapsed
		s.streak += elapsed
	}

	if s.streakThreshold > 0 && !s.streakAlerted && s.streak >= s.streakThreshold.Seconds() {
		s.streakAlerted = true
		alerts = append(alerts, notify.Alert{
			Kind:      notify.KindStreak,
			Title:     "Stay focused",
			Message:   fmt.Sprintf("%s, you have been distracted for %d seconds.", s.user, int(s.streak)),
			User:      s.user,
			SessionID: s.id,
			Time:      now,
		})
	}
	if next == StatusFocused {
		s.streak = 0
		s.streakAlerted = false
	}

	if !s.goalAlerted && s.focused >= s.goalHours*3600 {
		s.goalAlerted = true
		alerts = append(alerts, notify.Alert{
			Kind:      notify.KindGoal,
			Title:     "Goal reached",
			Message:   fmt.Sprintf("%s, you reached your %.2g hour focus goal.", s.user, s.goalHours),
			User:      s.user,
			SessionID: s.id,
			Time:      now,
		})
	}

	s.current = next
	s.lastUpdate = now
	return alerts
}

func (s *Session) timelineLocked(at time.Time, status Status) TimelineRecord {
	return TimelineRecord{
		Timestamp: at,
		SessionID: s.id,
		User:      s.user,
		Mode:      s.mode,
		Status:    status,
	}
}

func (s *Session) snapshotLocked() Summary {
	total := s.focused + s.distracted
	return Summary{
		SessionID:         s.id,
		User:              s.user,
		Mode:              s.mode,
		GoalHours:         s.goalHours,
		StartedAt:         s.startedAt,
		EndedAt:           s.endedAt,
		FocusedSeconds:    s.focused,
		DistractedSeconds: s.distracted,
		TotalSeconds:      total,
		FocusedMinutes:    int(s.focused / 60),
		FocusScore:        score(s.focused, s.distracted),
		GoalAchieved:      s.focused/3600 >= s.goalHours,
		Status:            s.current,
		Running:           s.state == stateRunning,
	}
}

func score(focused, distracted float64) int {
	total := focused + distracted
	if total <= 0 {
		return 0
	}
	return int(focused * 100 / total)
}
