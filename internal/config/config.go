// Package config loads go-focus settings from a TOML file and FOCUS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/tracking"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Tracking TrackingConfig `toml:"tracking"`
	Camera   CameraConfig   `toml:"camera"`
	Kafka    KafkaConfig    `toml:"kafka"`
	Notify   NotifyConfig   `toml:"notify"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	StaticDir    string `toml:"static-dir"`
	AllowOrigins string `toml:"allow-origins"`
}

// LogConfig configures logging. File is used while the TUI owns the
// terminal.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
	File  string `toml:"file"`
}

// StorageConfig locates the database.
type StorageConfig struct {
	DataDir string `toml:"data-dir"`
	DB      string `toml:"db"`
	Queue   int    `toml:"queue"`
}

// TrackingConfig picks a preset and overrides individual thresholds.
// Zero values keep the preset's value.
type TrackingConfig struct {
	Preset           string        `toml:"preset"`
	EAROpen          float64       `toml:"ear-open"`
	HeadTurn         float64       `toml:"head-turn"`
	BlinkMax         time.Duration `toml:"blink-max"`
	ClosedLong       time.Duration `toml:"closed-long"`
	OpenDebounce     time.Duration `toml:"open-debounce"`
	IdleWarning      time.Duration `toml:"idle-warning"`
	IdleLimit        time.Duration `toml:"idle-limit"`
	Heartbeat        time.Duration `toml:"heartbeat"`
	WarningSound     string        `toml:"warning-sound"`
	AlertSound       string        `toml:"alert-sound"`
	DistractionAlert time.Duration `toml:"distraction-alert"`
}

// CameraConfig configures local capture and face detection.
type CameraConfig struct {
	Preset         string `toml:"preset"`
	Device         int    `toml:"device"`
	Mirror         *bool  `toml:"mirror"`
	ModelPath      string `toml:"model"`
	EyeCascadePath string `toml:"eye-cascade"`
}

// KafkaConfig enables the event stream.
type KafkaConfig struct {
	Enabled  bool     `toml:"enabled"`
	Brokers  []string `toml:"brokers"`
	Topic    string   `toml:"topic"`
	Acks     int      `toml:"acks"`
	Balancer string   `toml:"balancer"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	WebhookURL string `toml:"webhook-url"`
	Queue      int    `toml:"queue"`
}

// Default returns the built-in configuration.
func Default() Config {
	det := detection.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:5000",
			AllowOrigins: "*",
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			DataDir: DefaultDataDir(),
			Queue:   256,
		},
		Tracking: TrackingConfig{
			Preset:           "default",
			DistractionAlert: 2 * time.Minute,
		},
		Camera: CameraConfig{
			Preset:         camera.PresetDefault,
			ModelPath:      det.ModelPath,
			EyeCascadePath: det.EyeCascadePath,
		},
		Kafka: KafkaConfig{
			Topic:    "focus-events",
			Acks:     1,
			Balancer: "hash",
		},
		Notify: NotifyConfig{Queue: 64},
	}
}

// Load reads path over the defaults and then applies the environment.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to stat config: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// DBPath returns the database path, defaulting into the data dir.
func (c Config) DBPath() string {
	if c.Storage.DB != "" {
		return c.Storage.DB
	}
	return filepath.Join(c.Storage.DataDir, "focus.db")
}

// LogPath returns the TUI log file path.
func (c Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Storage.DataDir, "focus.log")
}

// TrackingConfig resolves the preset and applies the overrides.
func (c Config) TrackingConfig() (tracking.Config, error) {
	t := c.Tracking
	cfg, err := tracking.GetPreset(t.Preset)
	if err != nil {
		return cfg, err
	}
	if t.EAROpen > 0 {
		cfg.EAROpen = t.EAROpen
	}
	if t.HeadTurn > 0 {
		cfg.HeadTurn = t.HeadTurn
	}
	if t.BlinkMax > 0 {
		cfg.BlinkMax = t.BlinkMax
	}
	if t.ClosedLong > 0 {
		cfg.ClosedLong = t.ClosedLong
	}
	if t.OpenDebounce > 0 {
		cfg.OpenDebounce = t.OpenDebounce
	}
	if t.IdleWarning > 0 {
		cfg.IdleWarning = t.IdleWarning
	}
	if t.IdleLimit > 0 {
		cfg.IdleLimit = t.IdleLimit
	}
	if t.Heartbeat > 0 {
		cfg.Heartbeat = t.Heartbeat
	}
	if t.WarningSound != "" {
		cfg.WarningSound = t.WarningSound
	}
	if t.AlertSound != "" {
		cfg.AlertSound = t.AlertSound
	}
	return cfg, cfg.Validate()
}

// CameraConfig resolves the camera preset and applies the overrides.
func (c Config) CameraConfig() (camera.Config, error) {
	preset := camera.GetPreset(c.Camera.Preset)
	if preset == nil {
		return camera.Config{}, fmt.Errorf("%w: unknown camera preset %q (available: %v)", ErrInvalid, c.Camera.Preset, camera.PresetNames())
	}
	cfg := *preset
	cfg.Device = c.Camera.Device
	if c.Camera.Mirror != nil {
		cfg.Mirror = *c.Camera.Mirror
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("%w: camera: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return cfg, nil
}

// DetectionConfig returns the face detector settings.
func (c Config) DetectionConfig() detection.Config {
	cfg := detection.DefaultConfig()
	if c.Camera.ModelPath != "" {
		cfg.ModelPath = c.Camera.ModelPath
	}
	if c.Camera.EyeCascadePath != "" {
		cfg.EyeCascadePath = c.Camera.EyeCascadePath
	}
	return cfg
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	case c.Storage.DataDir == "" && c.Storage.DB == "":
		return fmt.Errorf("%w: storage.data-dir is empty", ErrInvalid)
	case c.Storage.Queue < 0 || c.Notify.Queue < 0:
		return fmt.Errorf("%w: queue sizes must not be negative", ErrInvalid)
	case c.Tracking.DistractionAlert < 0:
		return fmt.Errorf("%w: tracking.distraction-alert must not be negative", ErrInvalid)
	case c.Kafka.Enabled && len(c.Kafka.Brokers) == 0:
		return fmt.Errorf("%w: kafka.brokers is required when kafka is enabled", ErrInvalid)
	case c.Kafka.Enabled && strings.TrimSpace(c.Kafka.Topic) == "":
		return fmt.Errorf("%w: kafka.topic is required when kafka is enabled", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if _, err := c.TrackingConfig(); err != nil {
		return err
	}
	if _, err := c.CameraConfig(); err != nil {
		return err
	}
	return nil
}
