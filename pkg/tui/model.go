// Package tui provides the Bubble Tea terminal view of a running focus
// session. In no-camera mode every key press and mouse movement in the
// terminal counts as activity.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking"
)

const (
	feedSize     = 64
	refreshEvery = time.Second
	barWidth     = 40
)

// Tracker is the part of a tracker the view reads.
type Tracker interface {
	Snapshot() session.Summary
	Status() session.Status
	Phase() tracking.Phase
	Stop() session.Summary
}

// ActivityRecorder is implemented by tracking.ActivityTracker.
type ActivityRecorder interface {
	RecordActivity(at time.Time) tracking.Update
}

type updateMsg tracking.Update

type alertMsg notify.Alert

type refreshMsg time.Time

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	focusedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#52C41A"))
	distractedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Width(12)
	alertStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	boxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

// Model implements the Bubble Tea session view.
type Model struct {
	tracker  Tracker
	activity ActivityRecorder
	now      func() time.Time

	updates chan tracking.Update
	alerts  chan notify.Alert

	bar    progress.Model
	width  int
	height int

	last      tracking.Update
	hasUpdate bool
	alert     *notify.Alert
	final     *session.Summary
}

// New builds a view for t. If t also records activity, terminal input is
// forwarded to it.
func New(t Tracker) *Model {
	m := &Model{
		tracker: t,
		now:     time.Now,
		updates: make(chan tracking.Update, feedSize),
		alerts:  make(chan notify.Alert, feedSize),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
	if a, ok := t.(ActivityRecorder); ok {
		m.activity = a
	}
	return m
}

// Observe queues a tracker update for display. It never blocks; pass it to
// the tracker's OnUpdate.
func (m *Model) Observe(u tracking.Update) {
	select {
	case m.updates <- u:
	default:
	}
}

// Notify implements notify.Notifier so alerts show up in the view.
func (m *Model) Notify(a notify.Alert) {
	select {
	case m.alerts <- a:
	default:
	}
}

// Final returns the summary once the user has quit.
func (m *Model) Final() (session.Summary, bool) {
	if m.final == nil {
		return session.Summary{}, false
	}
	return *m.final, true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitUpdate(), m.waitAlert(), refresh())
}

func (m *Model) waitUpdate() tea.Cmd {
	return func() tea.Msg { return updateMsg(<-m.updates) }
}

func (m *Model) waitAlert() tea.Cmd {
	return func() tea.Msg { return alertMsg(<-m.alerts) }
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, m.quit()
		}
		m.recordActivity()
		return m, nil
	case tea.MouseMsg:
		m.recordActivity()
		return m, nil
	case updateMsg:
		m.last = tracking.Update(msg)
		m.hasUpdate = true
		return m, m.waitUpdate()
	case alertMsg:
		a := notify.Alert(msg)
		m.alert = &a
		return m, m.waitAlert()
	case refreshMsg:
		if m.final != nil {
			return m, nil
		}
		return m, refresh()
	default:
		return m, nil
	}
}

func (m *Model) recordActivity() {
	if m.activity == nil || m.final != nil {
		return
	}
	m.last = m.activity.RecordActivity(m.now())
	m.hasUpdate = true
}

func (m *Model) quit() tea.Cmd {
	if m.final == nil {
		sum := m.tracker.Stop()
		m.final = &sum
	}
	return tea.Quit
}

// View implements tea.Model.
func (m *Model) View() string {
	sum := m.tracker.Snapshot()
	if m.final != nil {
		sum = *m.final
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("go-focus · %s · %s", sum.User, sum.Mode)),
		"",
		row("Status", renderStatus(m.tracker.Status())),
		row("Phase", m.tracker.Phase().String()),
		row("Focused", formatDuration(sum.FocusedSeconds)),
		row("Distracted", formatDuration(sum.DistractedSeconds)),
		row("Score", fmt.Sprintf("%d%%", sum.FocusScore)),
		row("Goal", fmt.Sprintf("%s %.0f%% of %s", m.bar.ViewAs(sum.GoalProgress()), sum.GoalProgress()*100, formatHours(sum.GoalHours))),
	}
	if m.hasUpdate && m.last.IdleFor > 0 {
		lines = append(lines, row("Idle", formatDuration(m.last.IdleFor.Seconds())))
	}
	if m.hasUpdate && m.last.Result != nil {
		lines = append(lines, row("EAR", fmt.Sprintf("%.3f  head %.2f  blinks %d", m.last.Result.EAR, m.last.Result.HeadOffset, m.last.Result.Blinks)))
	}
	if m.alert != nil {
		lines = append(lines, "", alertStyle.Render(fmt.Sprintf("⚠ %s: %s", m.alert.Title, m.alert.Message)))
	}
	if m.final != nil {
		verdict := "goal not reached"
		if sum.GoalAchieved {
			verdict = "goal reached"
		}
		lines = append(lines, "", titleStyle.Render("Session finished, "+verdict))
	}

	footer := "q quit"
	if m.activity != nil {
		footer = "any key counts as activity · " + footer
	}
	lines = append(lines, "", footerStyle.Render(footer))

	content := boxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderStatus(s session.Status) string {
	if s == session.StatusFocused {
		return focusedStyle.Render(s.String())
	}
	return distractedStyle.Render(s.String())
}

// formatDuration renders seconds as h:mm:ss.
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	mm := int(d.Minutes()) % 60
	ss := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, mm, ss)
}

func formatHours(h float64) string {
	if h == float64(int(h)) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}
