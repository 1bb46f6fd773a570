package session

import "time"

// TimelineRecord is appended whenever the committed status changes.
type TimelineRecord struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	User      string    `json:"user"`
	Mode      Mode      `json:"mode"`
	Status    Status    `json:"status"`
}

// Summary is a read-only snapshot of a session. The final summary is
// recorded once when the session stops.
type Summary struct {
	SessionID         string    `json:"session_id"`
	User              string    `json:"user"`
	Mode              Mode      `json:"mode"`
	GoalHours         float64   `json:"goal_hours"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"` // zero while running
	FocusedSeconds    float64   `json:"focused_seconds"`
	DistractedSeconds float64   `json:"distracted_seconds"`
	TotalSeconds      float64   `json:"total_seconds"`
	FocusedMinutes    int       `json:"focused_minutes"`
	FocusScore        int       `json:"focus_score"`
	GoalAchieved      bool      `json:"goal_achieved"`
	Status            Status    `json:"status"`
	Running           bool      `json:"running"`
}

// GoalProgress returns focused time as a fraction of the goal, capped at 1.
func (s Summary) GoalProgress() float64 {
	if s.GoalHours <= 0 {
		return 0
	}
	p := s.FocusedSeconds / (s.GoalHours * 3600)
	if p > 1 {
		return 1
	}
	return p
}

// Recorder persists timeline and summary records. Implementations must not
// block the caller; failures are theirs to log.
type Recorder interface {
	RecordTimeline(rec TimelineRecord)
	RecordSummary(sum Summary)
}

type nopRecorder struct{}

func (nopRecorder) RecordTimeline(TimelineRecord) {}
func (nopRecorder) RecordSummary(Summary)         {}
