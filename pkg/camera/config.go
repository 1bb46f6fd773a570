// Package camera provides webcam capture and its runtime-configurable
// settings. Frames come out as JPEG for the face detector.
package camera

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Device ===
	Device int `json:"device"` // OpenCV device index

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Image ===
	// Mirror flips frames horizontally so the preview matches the user.
	Mirror bool `json:"mirror"`

	// Brightness adjustment (-1.0 to +1.0), applied by the driver when
	// supported. 0 leaves the driver default.
	Brightness float64 `json:"brightness"`
}

// Capture limits
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the recommended webcam configuration.
// 640x480 is plenty for eye landmarks and keeps detection fast.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   85,
		Mirror:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Brightness
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}

	return errors
}
