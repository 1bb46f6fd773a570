package session

import (
	"fmt"
	"strings"
)

// Status is a committed focus verdict.
type Status int32

const (
	StatusNotStarted Status = iota
	StatusFocused
	StatusDistracted
)

// String returns the display name used in timelines.
func (s Status) String() string {
	switch s {
	case StatusFocused:
		return "Focused"
	case StatusDistracted:
		return "Distracted"
	default:
		return "Not Started"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name, ignoring case and surrounding space.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a status name. Case is not significant.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "focused":
		return StatusFocused, nil
	case "distracted":
		return StatusDistracted, nil
	case "not started", "not_started", "":
		return StatusNotStarted, nil
	}
	return StatusNotStarted, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

// Mode is the signal source a session is tracked with.
type Mode string

const (
	ModeCamera   Mode = "camera"
	ModeNoCamera Mode = "no-camera"
)

// ParseMode parses a mode name. "nocamera", "activity" and "no_camera" are
// accepted as aliases of ModeNoCamera.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "camera", "cam":
		return ModeCamera, nil
	case "no-camera", "nocamera", "no_camera", "activity":
		return ModeNoCamera, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, v)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeCamera || m == ModeNoCamera
}
