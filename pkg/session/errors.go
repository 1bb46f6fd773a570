package session

import "errors"

// Sentinel errors for session lifecycle and construction.
var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("session: already running")

	// ErrFinished is returned by Start on a session that was stopped.
	// A session covers exactly one run.
	ErrFinished = errors.New("session: already finished")

	// ErrInvalidGoal is returned when the goal is not a positive number of hours.
	ErrInvalidGoal = errors.New("session: goal hours must be positive")

	// ErrInvalidUser is returned when the user name is empty.
	ErrInvalidUser = errors.New("session: user required")

	// ErrInvalidMode is returned for an unknown tracking mode.
	ErrInvalidMode = errors.New("session: unknown mode")

	// ErrInvalidStatus is returned when parsing an unknown status name.
	ErrInvalidStatus = errors.New("session: unknown status")
)
