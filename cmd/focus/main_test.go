package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-focus/pkg/report"
	"github.com/teslashibe/go-focus/pkg/session"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.Local)

	got, err := parseSince("", now)
	if err != nil || !got.IsZero() {
		t.Errorf("empty: got %v, %v", got, err)
	}
	got, err = parseSince("48h", now)
	if err != nil || !got.Equal(now.Add(-48*time.Hour)) {
		t.Errorf("duration: got %v, %v", got, err)
	}
	got, err = parseSince("2026-03-01", now)
	if err != nil || !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("date: got %v, %v", got, err)
	}
	if _, err := parseSince("last tuesday", now); err == nil {
		t.Error("expected error for unparseable value")
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[float64]string{0: "0m00s", 59.9: "0m59s", 61: "1m01s", 3600: "60m00s"}
	for in, want := range tests {
		if got := formatMinutes(in); got != want {
			t.Errorf("formatMinutes(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSessionTable(t *testing.T) {
	out := sessionTable([]session.Summary{{
		User:           "asha",
		Mode:           session.ModeCamera,
		StartedAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local),
		FocusedSeconds: 1500,
		TotalSeconds:   1800,
		FocusScore:     83,
		GoalAchieved:   true,
	}})
	for _, want := range []string{"STARTED", "asha", "camera", "25m00s", "83%", "reached"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, report.Report{User: "asha", Period: report.Weekly, Empty: true})
	if !strings.Contains(buf.String(), "no sessions in this period") {
		t.Errorf("empty report output: %q", buf.String())
	}

	buf.Reset()
	printReport(&buf, report.Report{
		User: "asha", Period: report.Weekly, Sessions: 4, TotalFocusMinutes: 180,
		BestDay: "Saturday", WorstDay: "Thursday",
	})
	for _, want := range []string{"180 min", "Saturday", "Thursday"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "track", "replay", "feed", "history", "report", "export"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
