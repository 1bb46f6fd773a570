package tracking

import "time"

// TuningParams holds the real-time adjustable thresholds.
// These can be modified via the tuning API without restarting a session.
type TuningParams struct {
	// Camera
	EAROpen        float64 `json:"ear_open"`         // Open-eye EAR threshold
	HeadTurn       float64 `json:"head_turn"`        // Head offset threshold
	BlinkMaxMs     int     `json:"blink_max_ms"`     // Longest blink
	ClosedLongMs   int     `json:"closed_long_ms"`   // Sustained closure
	OpenDebounceMs int     `json:"open_debounce_ms"` // Reopen debounce

	// Activity
	IdleWarningSec float64 `json:"idle_warning_sec"`
	IdleLimitSec   float64 `json:"idle_limit_sec"`
}

// TuningFromConfig reports cfg as tuning parameters.
func TuningFromConfig(cfg Config) TuningParams {
	return TuningParams{
		EAROpen:        cfg.EAROpen,
		HeadTurn:       cfg.HeadTurn,
		BlinkMaxMs:     int(cfg.BlinkMax.Milliseconds()),
		ClosedLongMs:   int(cfg.ClosedLong.Milliseconds()),
		OpenDebounceMs: int(cfg.OpenDebounce.Milliseconds()),
		IdleWarningSec: cfg.IdleWarning.Seconds(),
		IdleLimitSec:   cfg.IdleLimit.Seconds(),
	}
}

// Apply returns cfg with every non-zero parameter applied.
// The result is validated; on error cfg is returned unchanged.
func (p TuningParams) Apply(cfg Config) (Config, error) {
	next := cfg
	if p.EAROpen > 0 {
		next.EAROpen = p.EAROpen
	}
	if p.HeadTurn > 0 {
		next.HeadTurn = p.HeadTurn
	}
	if p.BlinkMaxMs > 0 {
		next.BlinkMax = time.Duration(p.BlinkMaxMs) * time.Millisecond
	}
	if p.ClosedLongMs > 0 {
		next.ClosedLong = time.Duration(p.ClosedLongMs) * time.Millisecond
	}
	if p.OpenDebounceMs > 0 {
		next.OpenDebounce = time.Duration(p.OpenDebounceMs) * time.Millisecond
	}
	if p.IdleWarningSec > 0 {
		next.IdleWarning = time.Duration(p.IdleWarningSec * float64(time.Second))
	}
	if p.IdleLimitSec > 0 {
		next.IdleLimit = time.Duration(p.IdleLimitSec * float64(time.Second))
	}
	if err := next.Validate(); err != nil {
		return cfg, err
	}
	return next, nil
}

// Tuning returns the current tuning parameters.
func (b *base) Tuning() TuningParams {
	return TuningFromConfig(b.Config())
}

func (b *base) applyTuning(p TuningParams) (Config, error) {
	b.cfgMu.Lock()
	defer b.cfgMu.Unlock()

	next, err := p.Apply(b.cfg)
	if err != nil {
		return b.cfg, err
	}
	b.cfg = next
	b.log.Info("tuning updated",
		"ear_open", next.EAROpen,
		"head_turn", next.HeadTurn,
		"idle_limit", next.IdleLimit)
	return next, nil
}
