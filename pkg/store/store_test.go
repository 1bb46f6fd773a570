package store

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/session"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "focus.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func summary(id, user string, ended time.Time, focused, distracted float64) session.Summary {
	return session.Summary{
		SessionID:         id,
		User:              user,
		Mode:              session.ModeCamera,
		GoalHours:         1,
		StartedAt:         ended.Add(-time.Duration(focused+distracted) * time.Second),
		EndedAt:           ended,
		FocusedSeconds:    focused,
		DistractedSeconds: distracted,
		FocusScore:        int(focused * 100 / (focused + distracted)),
		GoalAchieved:      focused >= 3600,
	}
}

func TestStore_Timeline(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	recs := []session.TimelineRecord{
		{Timestamp: t0, SessionID: "a", User: "asha", Mode: session.ModeCamera, Status: session.StatusDistracted},
		{Timestamp: t0.Add(1500 * time.Millisecond), SessionID: "a", User: "asha", Mode: session.ModeCamera, Status: session.StatusFocused},
		{Timestamp: t0.Add(time.Second), SessionID: "b", User: "ben", Mode: session.ModeNoCamera, Status: session.StatusFocused},
	}
	for _, r := range recs {
		if err := s.SaveTimeline(ctx, r); err != nil {
			t.Fatalf("SaveTimeline: %v", err)
		}
	}

	got, err := s.ListTimeline(ctx, Query{User: "Asha "})
	if err != nil {
		t.Fatalf("ListTimeline: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("asha timeline: got %d records, want 2", len(got))
	}
	if got[1].Status != session.StatusFocused || !got[1].Timestamp.Equal(recs[1].Timestamp) {
		t.Errorf("second record: got %+v", got[1])
	}

	all, err := s.ListTimeline(ctx, Query{})
	if err != nil {
		t.Fatalf("ListTimeline: %v", err)
	}
	// Sub-second timestamps must still sort chronologically
	if len(all) != 3 || all[1].SessionID != "b" {
		t.Errorf("order: got %+v", all)
	}

	since, err := s.ListTimeline(ctx, Query{Since: t0.Add(time.Second)})
	if err != nil || len(since) != 2 {
		t.Errorf("since filter: got %d, %v", len(since), err)
	}
}

func TestStore_Sessions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, err := s.LastUser(ctx); !errors.Is(err, ErrNoSessions) {
		t.Errorf("LastUser on empty db: got %v", err)
	}

	day := 24 * time.Hour
	for _, sum := range []session.Summary{
		summary("s1", "asha", t0, 1800, 600),
		summary("s2", "asha", t0.Add(day), 3600, 400),
		summary("s3", "ben", t0.Add(2*day), 600, 600),
	} {
		if err := s.SaveSummary(ctx, sum); err != nil {
			t.Fatalf("SaveSummary: %v", err)
		}
	}
	// Re-saving replaces
	if err := s.SaveSummary(ctx, summary("s1", "asha", t0, 1900, 500)); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	got, err := s.ListSessions(ctx, Query{User: "asha"})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("asha sessions: got %d, want 2", len(got))
	}
	if got[0].SessionID != "s2" || !got[0].GoalAchieved {
		t.Errorf("newest first: got %+v", got[0])
	}
	if got[1].FocusedSeconds != 1900 || got[1].TotalSeconds != 2400 {
		t.Errorf("replaced row: got %+v", got[1])
	}

	limited, err := s.ListSessions(ctx, Query{Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].SessionID != "s3" {
		t.Errorf("limit: got %+v, %v", limited, err)
	}

	user, err := s.LastUser(ctx)
	if err != nil || user != "ben" {
		t.Errorf("LastUser: got %q, %v", user, err)
	}

	users, err := s.Users(ctx)
	if err != nil || len(users) != 2 || users[0] != "asha" {
		t.Errorf("Users: got %v, %v", users, err)
	}
}

func TestStore_ExportCSV(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	s.SaveTimeline(ctx, session.TimelineRecord{Timestamp: t0, SessionID: "a", User: "asha", Mode: session.ModeCamera, Status: session.StatusFocused})
	s.SaveSummary(ctx, summary("a", "asha", t0.Add(time.Hour), 3000, 600))

	dir := t.TempDir()
	if err := s.ExportCSV(ctx, dir, Query{}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	timeline := readCSV(t, filepath.Join(dir, TimelineCSV))
	if len(timeline) != 2 || timeline[0][3] != "status" || timeline[1][3] != "Focused" {
		t.Errorf("timeline.csv: %v", timeline)
	}

	sessions := readCSV(t, filepath.Join(dir, SessionsCSV))
	if len(sessions) != 2 {
		t.Fatalf("sessions.csv rows: %d", len(sessions))
	}
	want := []string{"asha", "camera", "3000", "600", "1", "false", "83"}
	for i, w := range want {
		if sessions[1][i+1] != w {
			t.Errorf("sessions.csv col %s: got %q, want %q", sessions[0][i+1], sessions[1][i+1], w)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

// memBackend records writes; failing makes every write error.
type memBackend struct {
	mu        sync.Mutex
	timeline  []session.TimelineRecord
	summaries []session.Summary
	failing   bool
	block     chan struct{}
}

func (m *memBackend) SaveTimeline(_ context.Context, rec session.TimelineRecord) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk full")
	}
	m.timeline = append(m.timeline, rec)
	return nil
}

func (m *memBackend) SaveSummary(_ context.Context, sum session.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk full")
	}
	m.summaries = append(m.summaries, sum)
	return nil
}

func TestAsync_WritesAndDrains(t *testing.T) {
	mem := &memBackend{}
	a := NewAsync(mem, WithAsyncLogger(log.Discard()))

	for i := 0; i < 10; i++ {
		a.RecordTimeline(session.TimelineRecord{Timestamp: t0.Add(time.Duration(i) * time.Second)})
	}
	a.RecordSummary(summary("x", "asha", t0, 10, 0))

	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(mem.timeline) != 10 || len(mem.summaries) != 1 {
		t.Errorf("written: %d timeline, %d summaries", len(mem.timeline), len(mem.summaries))
	}

	// After close records are dropped, not panicking
	a.RecordTimeline(session.TimelineRecord{})
	if a.Dropped() != 1 {
		t.Errorf("Dropped: got %d, want 1", a.Dropped())
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAsync_FullQueueDrops(t *testing.T) {
	mem := &memBackend{block: make(chan struct{})}
	a := NewAsync(mem, WithAsyncQueue(1), WithAsyncLogger(log.Discard()))

	// One in flight (blocked), one queued, the rest dropped
	for i := 0; i < 5; i++ {
		a.RecordTimeline(session.TimelineRecord{})
		time.Sleep(5 * time.Millisecond)
	}
	if a.Dropped() < 3 {
		t.Errorf("Dropped: got %d, want >= 3", a.Dropped())
	}

	close(mem.block)
	a.Close(context.Background())
}

func TestAsync_FailuresSwallowed(t *testing.T) {
	mem := &memBackend{failing: true}
	a := NewAsync(mem, WithAsyncLogger(log.Discard()))

	a.RecordSummary(summary("x", "asha", t0, 10, 0))
	a.Close(context.Background())

	if a.Failed() != 1 {
		t.Errorf("Failed: got %d, want 1", a.Failed())
	}
}

func TestFanout(t *testing.T) {
	ok, bad := &memBackend{}, &memBackend{failing: true}
	f := Fanout{bad, ok}

	err := f.SaveTimeline(context.Background(), session.TimelineRecord{User: "asha"})
	if err == nil {
		t.Error("expected error from failing backend")
	}
	if len(ok.timeline) != 1 {
		t.Error("healthy backend should still receive the record")
	}
}

func TestStore_AsRecorder(t *testing.T) {
	s := openTemp(t)
	a := NewAsync(s, WithAsyncLogger(log.Discard()))

	sess, err := session.New("asha", session.ModeNoCamera, 1, session.WithRecorder(a), session.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sess.Start()
	sess.UpdateStatus(session.StatusFocused)
	sess.Stop()
	a.Close(context.Background())

	ctx := context.Background()
	timeline, err := s.ListTimeline(ctx, Query{User: "asha"})
	if err != nil || len(timeline) != 2 {
		t.Errorf("timeline: got %d records, %v", len(timeline), err)
	}
	sessions, err := s.ListSessions(ctx, Query{User: "asha"})
	if err != nil || len(sessions) != 1 || sessions[0].SessionID != sess.ID() {
		t.Errorf("sessions: got %+v, %v", sessions, err)
	}
}
