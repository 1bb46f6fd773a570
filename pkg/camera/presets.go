package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetNight   = "night"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowConfig(),
		Preset720p:    HD720Config(),
		PresetNight:   NightConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		Preset720p,
		PresetNight,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig returns a low-cost configuration for older laptops.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 15
	cfg.Quality = 75
	return cfg
}

// HD720Config returns 720p HD configuration.
// Better landmarks when the user sits far from the camera.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// NightConfig brightens frames for dim rooms.
func NightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.Brightness = 0.4
	return cfg
}
