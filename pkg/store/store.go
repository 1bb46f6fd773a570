// Package store handles SQLite persistence of focus timelines and session
// summaries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"

	_ "modernc.org/sqlite" // SQLite driver.
)

// tsLayout is fixed width so text order is time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNoSessions is returned by LastUser on an empty database.
var ErrNoSessions = errors.New("store: no sessions recorded")

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timeline (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			user TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			focused_seconds REAL NOT NULL,
			distracted_seconds REAL NOT NULL,
			goal_hours REAL NOT NULL,
			goal_achieved INTEGER NOT NULL,
			focus_score INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_user_ts ON timeline(user, timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_ended ON sessions(user, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveTimeline appends one status change.
func (s *Store) SaveTimeline(ctx context.Context, rec session.TimelineRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timeline (session_id, timestamp, user, mode, status) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Timestamp.UTC().Format(tsLayout),
		rec.User,
		string(rec.Mode),
		rec.Status.String(),
	)
	return err
}

// SaveSummary stores a finished session. Saving the same session twice
// replaces the earlier row.
func (s *Store) SaveSummary(ctx context.Context, sum session.Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, user, mode, started_at, ended_at, focused_seconds, distracted_seconds, goal_hours, goal_achieved, focus_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID,
		sum.User,
		string(sum.Mode),
		sum.StartedAt.UTC().Format(tsLayout),
		sum.EndedAt.UTC().Format(tsLayout),
		sum.FocusedSeconds,
		sum.DistractedSeconds,
		sum.GoalHours,
		sum.GoalAchieved,
		sum.FocusScore,
	)
	return err
}

// Query filters list results. Zero values match everything.
type Query struct {
	User  string
	Since time.Time
	Until time.Time
	Limit int
}

func (q Query) where(tsColumn string) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if q.User != "" {
		clauses = append(clauses, "user = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.User)))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, tsColumn+" >= ?")
		args = append(args, q.Since.UTC().Format(tsLayout))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, tsColumn+" < ?")
		args = append(args, q.Until.UTC().Format(tsLayout))
	}
	return strings.Join(clauses, " AND "), args
}

func (q Query) limit() string {
	if q.Limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(q.Limit)
}

// ListTimeline returns status changes in chronological order.
func (s *Store) ListTimeline(ctx context.Context, q Query) ([]session.TimelineRecord, error) {
	where, args := q.where("timestamp")
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, timestamp, user, mode, status FROM timeline WHERE `+where+
			` ORDER BY timestamp ASC, id ASC`+q.limit(), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []session.TimelineRecord
	for rows.Next() {
		var (
			rec          session.TimelineRecord
			ts, mode, st string
		)
		if err := rows.Scan(&rec.SessionID, &ts, &rec.User, &mode, &st); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, err
		}
		rec.Mode = session.Mode(mode)
		if rec.Status, err = session.ParseStatus(st); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns finished sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, q Query) ([]session.Summary, error) {
	where, args := q.where("ended_at")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user, mode, started_at, ended_at, focused_seconds, distracted_seconds, goal_hours, goal_achieved, focus_score
		 FROM sessions WHERE `+where+` ORDER BY ended_at DESC`+q.limit(), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []session.Summary
	for rows.Next() {
		var (
			sum                     session.Summary
			mode, started, endedStr string
		)
		if err := rows.Scan(&sum.SessionID, &sum.User, &mode, &started, &endedStr,
			&sum.FocusedSeconds, &sum.DistractedSeconds, &sum.GoalHours, &sum.GoalAchieved, &sum.FocusScore); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = time.Parse(tsLayout, started); err != nil {
			return nil, err
		}
		if sum.EndedAt, err = time.Parse(tsLayout, endedStr); err != nil {
			return nil, err
		}
		sum.Mode = session.Mode(mode)
		sum.TotalSeconds = sum.FocusedSeconds + sum.DistractedSeconds
		sum.FocusedMinutes = int(sum.FocusedSeconds / 60)
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LastUser returns the user of the most recently finished session.
func (s *Store) LastUser(ctx context.Context) (string, error) {
	var user string
	err := s.db.QueryRowContext(ctx, `SELECT user FROM sessions ORDER BY ended_at DESC LIMIT 1`).Scan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSessions
	}
	return user, err
}

// Users lists every user with at least one finished session.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user FROM sessions ORDER BY user`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
