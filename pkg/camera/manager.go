package camera

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrInvalidConfig = errors.New("camera: invalid config")
	ErrUnknownPreset = errors.New("camera: unknown preset")
)

// ApplyFunc pushes a configuration to the capture device.
type ApplyFunc func(cfg Config) error

// Update is a partial settings change as sent by the camera API. Nil
// fields keep their current value. Preset, when set, replaces the whole
// configuration before the other fields apply.
type Update struct {
	Preset     *string  `json:"preset,omitempty"`
	Device     *int     `json:"device,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Framerate  *int     `json:"framerate,omitempty"`
	Quality    *int     `json:"quality,omitempty"`
	Mirror     *bool    `json:"mirror,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
}

// Manager owns the live webcam settings. Changes are validated, pushed to
// the device and only then committed, so a device that rejects a change
// keeps reporting the settings it actually runs with.
type Manager struct {
	mu    sync.Mutex
	cfg   Config
	apply ApplyFunc
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// OnChange sets the function that applies new settings to the device.
func (m *Manager) OnChange(fn ApplyFunc) {
	m.mu.Lock()
	m.apply = fn
	m.mu.Unlock()
}

// Config returns the current settings.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Set replaces the settings.
func (m *Manager) Set(cfg Config) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(cfg)
}

// Update applies a partial change.
func (m *Manager) Update(u Update) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := u.merge(m.cfg)
	if err != nil {
		return m.cfg, err
	}
	return m.setLocked(cfg)
}

// ApplyPreset switches to a named preset.
func (m *Manager) ApplyPreset(name string) (Config, error) {
	return m.Update(Update{Preset: &name})
}

func (m *Manager) setLocked(cfg Config) (Config, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return m.cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	if m.apply != nil {
		if err := m.apply(cfg); err != nil {
			return m.cfg, fmt.Errorf("failed to apply camera config: %w", err)
		}
	}
	m.cfg = cfg
	return cfg, nil
}

func (u Update) merge(cfg Config) (Config, error) {
	if u.Preset != nil {
		preset := GetPreset(*u.Preset)
		if preset == nil {
			return cfg, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, *u.Preset, PresetNames())
		}
		// The device index is not part of a preset
		device := cfg.Device
		cfg = *preset
		cfg.Device = device
	}
	setInt(&cfg.Device, u.Device)
	setInt(&cfg.Width, u.Width)
	setInt(&cfg.Height, u.Height)
	setInt(&cfg.Framerate, u.Framerate)
	setInt(&cfg.Quality, u.Quality)
	if u.Mirror != nil {
		cfg.Mirror = *u.Mirror
	}
	if u.Brightness != nil {
		cfg.Brightness = *u.Brightness
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
