package tracking

import "fmt"

// Phase is the classifier's internal state.
type Phase int

const (
	// Camera phases
	PhaseNoFace Phase = iota
	PhaseEyesOpenFocused
	PhaseEyesClosedShort
	PhaseEyesClosedLong
	PhaseRecoveringOpen

	// Activity phases
	PhaseActive
	PhaseWarned
	PhaseIdle
)

var phaseNames = [...]string{
	PhaseNoFace:          "no_face",
	PhaseEyesOpenFocused: "eyes_open_focused",
	PhaseEyesClosedShort: "eyes_closed_short",
	PhaseEyesClosedLong:  "eyes_closed_long",
	PhaseRecoveringOpen:  "recovering_open",
	PhaseActive:          "active",
	PhaseWarned:          "warned",
	PhaseIdle:            "idle",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePhase returns the phase with the given name.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return PhaseNoFace, fmt.Errorf("tracking: unknown phase %q", name)
}

func (p Phase) closure() bool {
	return p == PhaseEyesClosedShort || p == PhaseEyesClosedLong
}
