// Package report aggregates finished sessions into weekly and monthly
// summaries and turns a timeline into a focus graph series.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

// Period selects the report window.
type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

var (
	ErrNoUser        = errors.New("report: user is required")
	ErrUnknownPeriod = errors.New("report: unknown period")
)

// ParsePeriod accepts "weekly", "week", "monthly" and "month".
func ParsePeriod(v string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, v)
}

// Window returns how far back the period reaches.
func (p Period) Window() time.Duration {
	if p == Monthly {
		return 30 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// Since returns the start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	return now.Add(-p.Window())
}

// Report aggregates the sessions of one user over a period. Days are
// calendar days in the location of the session end times.
type Report struct {
	User                string    `json:"user"`
	Period              Period    `json:"period"`
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	Sessions            int       `json:"sessions"`
	DaysTracked         int       `json:"days_tracked"`
	TotalFocusMinutes   int       `json:"total_focus_minutes"`
	AverageDailyMinutes int       `json:"average_daily_minutes"`
	GoalDays            int       `json:"goal_days"`
	AverageScore        int       `json:"average_score"`
	BestDay             string    `json:"best_day,omitempty"`
	WorstDay            string    `json:"worst_day,omitempty"`
	Empty               bool      `json:"empty"`
}

type dayTotal struct {
	day     time.Time
	focused float64
	goal    bool
}

// Build aggregates sums for user over the period ending at now. Sessions
// of other users or outside the window are ignored, so callers may pass
// an unfiltered list.
func Build(user string, period Period, sums []session.Summary, now time.Time) (Report, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return Report{}, ErrNoUser
	}
	if period != Weekly && period != Monthly {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}

	r := Report{User: user, Period: period, From: period.Since(now), To: now}

	days := map[string]*dayTotal{}
	var focused float64
	var scores int
	for _, s := range sums {
		if s.User != user || s.EndedAt.Before(r.From) || s.EndedAt.After(now) {
			continue
		}
		r.Sessions++
		focused += s.FocusedSeconds
		scores += s.FocusScore

		key := s.EndedAt.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			y, m, dd := s.EndedAt.Date()
			d = &dayTotal{day: time.Date(y, m, dd, 0, 0, 0, 0, s.EndedAt.Location())}
			days[key] = d
		}
		d.focused += s.FocusedSeconds
		d.goal = d.goal || s.GoalAchieved
	}

	if r.Sessions == 0 {
		r.Empty = true
		return r, nil
	}

	ordered := make([]*dayTotal, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, d)
		if d.goal {
			r.GoalDays++
		}
	}
	// Chronological so ties resolve to the earliest day
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].day.Before(ordered[j].day) })

	best, worst := ordered[0], ordered[0]
	for _, d := range ordered[1:] {
		if d.focused > best.focused {
			best = d
		}
		if d.focused < worst.focused {
			worst = d
		}
	}

	r.DaysTracked = len(ordered)
	r.TotalFocusMinutes = int(focused / 60)
	r.AverageDailyMinutes = int(focused / 60 / float64(r.DaysTracked))
	r.AverageScore = scores / r.Sessions
	r.BestDay = best.day.Weekday().String()
	r.WorstDay = worst.day.Weekday().String()
	return r, nil
}
