package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSV file names and layouts shared with spreadsheet users.
const (
	TimelineCSV = "timeline.csv"
	SessionsCSV = "sessions.csv"

	csvTimeLayout = "2006-01-02 15:04:05"
)

var (
	timelineHeader = []string{"timestamp", "user", "mode", "status"}
	sessionsHeader = []string{"timestamp", "user", "mode", "focused_seconds", "distracted_seconds", "goal_hours", "goal_achieved", "focus_score"}
)

// ExportCSV writes timeline.csv and sessions.csv for q into dir.
func (s *Store) ExportCSV(ctx context.Context, dir string, q Query) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	timeline, err := s.ListTimeline(ctx, q)
	if err != nil {
		return fmt.Errorf("list timeline: %w", err)
	}
	rows := make([][]string, 0, len(timeline))
	for _, rec := range timeline {
		rows = append(rows, []string{
			rec.Timestamp.Local().Format(csvTimeLayout),
			rec.User,
			string(rec.Mode),
			rec.Status.String(),
		})
	}
	if err := writeCSV(filepath.Join(dir, TimelineCSV), timelineHeader, rows); err != nil {
		return err
	}

	sessions, err := s.ListSessions(ctx, q)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	rows = rows[:0]
	// Oldest first, as appended by a running tracker
	for i := len(sessions) - 1; i >= 0; i-- {
		sum := sessions[i]
		rows = append(rows, []string{
			sum.EndedAt.Local().Format(csvTimeLayout),
			sum.User,
			string(sum.Mode),
			strconv.Itoa(int(sum.FocusedSeconds)),
			strconv.Itoa(int(sum.DistractedSeconds)),
			strconv.FormatFloat(sum.GoalHours, 'f', -1, 64),
			strconv.FormatBool(sum.GoalAchieved),
			strconv.Itoa(sum.FocusScore),
		})
	}
	return writeCSV(filepath.Join(dir, SessionsCSV), sessionsHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
