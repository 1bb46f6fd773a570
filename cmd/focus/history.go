package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/pkg/report"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/store"
)

const dateLayout = "2006-01-02 15:04"

var (
	historyUser  string
	historySince string
	historyLast  int

	reportUser string

	exportDir  string
	exportUser string
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyUser, "user", "", "only this user")
	cmd.Flags().StringVar(&historySince, "since", "", "only sessions since a date (YYYY-MM-DD) or a duration ago (e.g. 72h)")
	cmd.Flags().IntVar(&historyLast, "last", 20, "show at most this many sessions")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "report <week|month>",
		Short:     "Show a weekly or monthly focus report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"week", "month"},
		RunE:      runReportCmd,
	}
	cmd.Flags().StringVar(&reportUser, "user", "", "user (default: the last user who tracked)")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write timeline.csv and sessions.csv",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: <data-dir>/export)")
	cmd.Flags().StringVar(&exportUser, "user", "", "only this user")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	since, err := parseSince(historySince, time.Now())
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sums, err := st.ListSessions(cmd.Context(), store.Query{User: historyUser, Since: since, Limit: historyLast})
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}
	fmt.Println(sessionTable(sums))
	return nil
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	period, err := report.ParsePeriod(args[0])
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	user := reportUser
	if user == "" {
		if user, err = st.LastUser(ctx); err != nil {
			if errors.Is(err, store.ErrNoSessions) {
				fmt.Println("no sessions recorded")
				return nil
			}
			return err
		}
	}

	now := time.Now()
	sums, err := st.ListSessions(ctx, store.Query{User: user, Since: period.Since(now)})
	if err != nil {
		return err
	}
	rep, err := report.Build(user, period, sums, now)
	if err != nil {
		return err
	}
	printReport(os.Stdout, rep)
	return nil
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := exportDir
	if dir == "" {
		dir = filepath.Join(cfg.Storage.DataDir, "export")
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ExportCSV(cmd.Context(), dir, store.Query{User: exportUser}); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", dir)
	return nil
}

// parseSince accepts a date or a duration before now. Empty means no bound.
func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use YYYY-MM-DD or a duration", v)
	}
	return t, nil
}

func sessionTable(sums []session.Summary) string {
	rows := make([][]string, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, []string{
			s.StartedAt.Local().Format(dateLayout),
			s.User,
			string(s.Mode),
			formatMinutes(s.FocusedSeconds),
			formatMinutes(s.TotalSeconds),
			strconv.Itoa(s.FocusScore) + "%",
			goalMark(s.GoalAchieved),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("STARTED", "USER", "MODE", "FOCUSED", "TOTAL", "SCORE", "GOAL").
		Rows(rows...).
		String()
}

func printReport(w io.Writer, r report.Report) {
	fmt.Fprintf(w, "%s report for %s (%s to %s)\n", r.Period, r.User,
		r.From.Local().Format("2006-01-02"), r.To.Local().Format("2006-01-02"))
	if r.Empty {
		fmt.Fprintln(w, "no sessions in this period")
		return
	}
	rows := [][]string{
		{"Sessions", strconv.Itoa(r.Sessions)},
		{"Days tracked", strconv.Itoa(r.DaysTracked)},
		{"Total focus", fmt.Sprintf("%d min", r.TotalFocusMinutes)},
		{"Daily average", fmt.Sprintf("%d min", r.AverageDailyMinutes)},
		{"Goal days", strconv.Itoa(r.GoalDays)},
		{"Average score", strconv.Itoa(r.AverageScore) + "%"},
		{"Best day", r.BestDay},
		{"Worst day", r.WorstDay},
	}
	fmt.Fprintln(w, table.New().Border(lipgloss.RoundedBorder()).Rows(rows...).String())
}

func printSummary(w io.Writer, s session.Summary) {
	fmt.Fprintf(w, "Session %s for %s\n", s.SessionID, s.User)
	fmt.Fprintf(w, "  focused     %s\n", formatMinutes(s.FocusedSeconds))
	fmt.Fprintf(w, "  distracted  %s\n", formatMinutes(s.DistractedSeconds))
	fmt.Fprintf(w, "  score       %d%%\n", s.FocusScore)
	fmt.Fprintf(w, "  goal        %.1fh %s\n", s.GoalHours, goalMark(s.GoalAchieved))
}

func formatMinutes(seconds float64) string {
	return fmt.Sprintf("%dm%02ds", int(seconds)/60, int(seconds)%60)
}

func goalMark(ok bool) string {
	if ok {
		return "reached"
	}
	return "-"
}
