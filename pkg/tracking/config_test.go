package tracking

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig_Thresholds(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.EAROpen != 0.22 {
		t.Errorf("Expected EAROpen=0.22, got %v", cfg.EAROpen)
	}
	if cfg.BlinkMin != 80*time.Millisecond || cfg.BlinkMax != 500*time.Millisecond {
		t.Errorf("Expected blink window 80ms-500ms, got %v-%v", cfg.BlinkMin, cfg.BlinkMax)
	}
	if cfg.ClosedLong != time.Second {
		t.Errorf("Expected ClosedLong=1s, got %v", cfg.ClosedLong)
	}
	if cfg.OpenDebounce != 250*time.Millisecond {
		t.Errorf("Expected OpenDebounce=250ms, got %v", cfg.OpenDebounce)
	}
	if cfg.HeadTurn != 0.13 {
		t.Errorf("Expected HeadTurn=0.13, got %v", cfg.HeadTurn)
	}
	if cfg.IdleWarning != 10*time.Second || cfg.IdleLimit != 20*time.Second {
		t.Errorf("Expected idle 10s/20s, got %v/%v", cfg.IdleWarning, cfg.IdleLimit)
	}
	if cfg.Heartbeat != time.Second {
		t.Errorf("Expected Heartbeat=1s, got %v", cfg.Heartbeat)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg, err := GetPreset(name)
		if err != nil {
			t.Fatalf("GetPreset(%q): %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestStrictConfig_FlagsSooner(t *testing.T) {
	def, strict := DefaultConfig(), StrictConfig()
	if strict.ClosedLong >= def.ClosedLong {
		t.Errorf("strict ClosedLong %v should be below default %v", strict.ClosedLong, def.ClosedLong)
	}
	if strict.IdleLimit >= def.IdleLimit {
		t.Errorf("strict IdleLimit %v should be below default %v", strict.IdleLimit, def.IdleLimit)
	}

	relaxed := RelaxedConfig()
	if relaxed.HeadTurn <= def.HeadTurn {
		t.Errorf("relaxed HeadTurn %v should exceed default %v", relaxed.HeadTurn, def.HeadTurn)
	}
}

func TestGetPreset(t *testing.T) {
	cfg, err := GetPreset("")
	if err != nil || cfg != DefaultConfig() {
		t.Errorf("empty preset should be default, got %+v, %v", cfg, err)
	}

	if _, err := GetPreset("turbo"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	names := PresetNames()
	want := []string{"default", "relaxed", "strict"}
	if len(names) != len(want) {
		t.Fatalf("PresetNames: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("PresetNames[%d]: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ear zero", func(c *Config) { c.EAROpen = 0 }},
		{"ear one", func(c *Config) { c.EAROpen = 1 }},
		{"negative blink min", func(c *Config) { c.BlinkMin = -time.Millisecond }},
		{"blink window inverted", func(c *Config) { c.BlinkMax = c.BlinkMin }},
		{"closed long below blink", func(c *Config) { c.ClosedLong = 100 * time.Millisecond }},
		{"negative debounce", func(c *Config) { c.OpenDebounce = -1 }},
		{"head turn zero", func(c *Config) { c.HeadTurn = 0 }},
		{"idle warning zero", func(c *Config) { c.IdleWarning = 0 }},
		{"idle limit below warning", func(c *Config) { c.IdleLimit = c.IdleWarning }},
		{"heartbeat zero", func(c *Config) { c.Heartbeat = 0 }},
		{"detection zero", func(c *Config) { c.DetectionInterval = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestTuningParams_Apply(t *testing.T) {
	cfg := DefaultConfig()

	next, err := TuningParams{HeadTurn: 0.3, ClosedLongMs: 1500}.Apply(cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.HeadTurn != 0.3 || next.ClosedLong != 1500*time.Millisecond {
		t.Errorf("Apply: got head_turn=%v closed_long=%v", next.HeadTurn, next.ClosedLong)
	}
	if next.EAROpen != cfg.EAROpen {
		t.Errorf("zero fields must be left alone, EAROpen=%v", next.EAROpen)
	}

	same, err := TuningParams{IdleLimitSec: 5}.Apply(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("idle limit below warning should fail, got %v", err)
	}
	if same != cfg {
		t.Error("failed Apply must return the input config")
	}

	round := TuningFromConfig(cfg)
	if back, err := round.Apply(cfg); err != nil || back != cfg {
		t.Errorf("TuningFromConfig round trip changed config: %+v, %v", back, err)
	}
}
