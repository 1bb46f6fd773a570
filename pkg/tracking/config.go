package tracking

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Classifier thresholds. EAR above DefaultEAROpen means eyes open.
const (
	DefaultEAROpen      = 0.22
	DefaultBlinkMin     = 80 * time.Millisecond
	DefaultBlinkMax     = 500 * time.Millisecond
	DefaultClosedLong   = 1 * time.Second
	DefaultOpenDebounce = 250 * time.Millisecond
	DefaultHeadTurn     = 0.13
)

// Activity thresholds.
const (
	DefaultIdleWarning = 10 * time.Second
	DefaultIdleLimit   = 20 * time.Second
)

// Loop timing.
const (
	DefaultHeartbeat         = 1 * time.Second
	DefaultDetectionInterval = 100 * time.Millisecond
	DefaultLostFaceLog       = 5 // consecutive misses before "lost face" is logged
)

// Alert sounds played by the desktop client.
const (
	DefaultWarningSound = "alert1.wav"
	DefaultAlertSound   = "alert2.wav"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("tracking: invalid config")

// Config holds all tunable parameters for focus classification
type Config struct {
	// Camera classifier
	EAROpen      float64       // Eye aspect ratio above this = open
	BlinkMin     time.Duration // Shortest closure counted as a blink
	BlinkMax     time.Duration // Longest closure counted as a blink
	ClosedLong   time.Duration // Closures longer than this are Distracted
	OpenDebounce time.Duration // Continuous openness needed after a closure
	HeadTurn     float64       // Head offset beyond this = looking away

	// Activity classifier
	IdleWarning  time.Duration // "Are you still there?" after this much idle
	IdleLimit    time.Duration // Distracted after this much idle
	WarningSound string
	AlertSound   string

	// Timing
	Heartbeat         time.Duration // Re-apply the last verdict this often
	DetectionInterval time.Duration // Camera frame sampling interval
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		EAROpen:      DefaultEAROpen,
		BlinkMin:     DefaultBlinkMin,
		BlinkMax:     DefaultBlinkMax,
		ClosedLong:   DefaultClosedLong,
		OpenDebounce: DefaultOpenDebounce,
		HeadTurn:     DefaultHeadTurn,

		IdleWarning:  DefaultIdleWarning,
		IdleLimit:    DefaultIdleLimit,
		WarningSound: DefaultWarningSound,
		AlertSound:   DefaultAlertSound,

		Heartbeat:         DefaultHeartbeat,
		DetectionInterval: DefaultDetectionInterval,
	}
}

// StrictConfig returns a configuration that flags distraction sooner
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.EAROpen = 0.24
	cfg.ClosedLong = 700 * time.Millisecond
	cfg.OpenDebounce = 400 * time.Millisecond
	cfg.HeadTurn = 0.10
	cfg.IdleWarning = 5 * time.Second
	cfg.IdleLimit = 10 * time.Second
	return cfg
}

// RelaxedConfig returns a configuration for readers and note takers who
// look down or away more often
func RelaxedConfig() Config {
	cfg := DefaultConfig()
	cfg.EAROpen = 0.20
	cfg.ClosedLong = 2 * time.Second
	cfg.OpenDebounce = 150 * time.Millisecond
	cfg.HeadTurn = 0.18
	cfg.IdleWarning = 30 * time.Second
	cfg.IdleLimit = 60 * time.Second
	return cfg
}

var presets = map[string]func() Config{
	"default": DefaultConfig,
	"strict":  StrictConfig,
	"relaxed": RelaxedConfig,
}

// GetPreset returns a named preset.
func GetPreset(name string) (Config, error) {
	if name == "" {
		return DefaultConfig(), nil
	}
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown preset %q (available: %v)", ErrInvalidConfig, name, PresetNames())
	}
	return fn(), nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the thresholds for internal consistency.
func (c Config) Validate() error {
	switch {
	case c.EAROpen <= 0 || c.EAROpen >= 1:
		return fmt.Errorf("%w: ear_open %.3f must be in (0, 1)", ErrInvalidConfig, c.EAROpen)
	case c.BlinkMin < 0:
		return fmt.Errorf("%w: blink_min must not be negative", ErrInvalidConfig)
	case c.BlinkMax <= c.BlinkMin:
		return fmt.Errorf("%w: blink_max %v must exceed blink_min %v", ErrInvalidConfig, c.BlinkMax, c.BlinkMin)
	case c.ClosedLong < c.BlinkMax:
		return fmt.Errorf("%w: closed_long %v must be at least blink_max %v", ErrInvalidConfig, c.ClosedLong, c.BlinkMax)
	case c.OpenDebounce < 0:
		return fmt.Errorf("%w: open_debounce must not be negative", ErrInvalidConfig)
	case c.HeadTurn <= 0:
		return fmt.Errorf("%w: head_turn must be positive", ErrInvalidConfig)
	case c.IdleWarning <= 0:
		return fmt.Errorf("%w: idle_warning must be positive", ErrInvalidConfig)
	case c.IdleLimit <= c.IdleWarning:
		return fmt.Errorf("%w: idle_limit %v must exceed idle_warning %v", ErrInvalidConfig, c.IdleLimit, c.IdleWarning)
	case c.Heartbeat <= 0:
		return fmt.Errorf("%w: heartbeat must be positive", ErrInvalidConfig)
	case c.DetectionInterval <= 0:
		return fmt.Errorf("%w: detection_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
