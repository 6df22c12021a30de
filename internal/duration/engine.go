package duration

import (
	"math"

	"hushbot/internal/random"
)

// MinSeconds is the hard floor on any computed mute duration.
const MinSeconds = 5

type Config struct {
	MinMinutes int
	MaxMinutes int
	MaxSeconds int
}

type Request struct {
	// FixedSeconds, when positive, replaces the random base draw. The caller
	// checks the ceiling before invoking; the clamp here is only a backstop.
	FixedSeconds int
	Critical     bool
	// Multiplier covers seasonal and chain escalation combined; values <= 0
	// mean no-op.
	Multiplier float64
	// CapSeconds lowers the ceiling for this computation, typically to a
	// per-guild override; 0 defers to cfg.MaxSeconds.
	CapSeconds int
}

type Engine struct {
	cfg Config
	rng random.Source
}

func NewEngine(cfg Config, rng random.Source) *Engine {
	if cfg.MinMinutes <= 0 {
		cfg.MinMinutes = 1
	}
	if cfg.MaxMinutes < cfg.MinMinutes {
		cfg.MaxMinutes = cfg.MinMinutes
	}
	if cfg.MaxSeconds <= 0 {
		cfg.MaxSeconds = 86400
	}
	return &Engine{cfg: cfg, rng: rng}
}

// Compute returns a mute duration in seconds, always within
// [MinSeconds, cfg.MaxSeconds] regardless of critical, multiplier and jitter.
// A positive CapSeconds tightens the upper bound further.
func (e *Engine) Compute(req Request) int {
	seconds := req.FixedSeconds
	if seconds <= 0 {
		seconds = e.rng.IntRange(e.cfg.MinMinutes*60, e.cfg.MaxMinutes*60)
	}

	value := float64(seconds)
	if req.Critical {
		value *= 2
	}
	if req.Multiplier > 0 {
		value *= req.Multiplier
	}

	jitter := 1 + (e.rng.Float()*0.3 - 0.15)
	value = math.Round(value * jitter)

	ceiling := e.cfg.MaxSeconds
	if req.CapSeconds > 0 && req.CapSeconds < ceiling {
		ceiling = req.CapSeconds
	}
	if ceiling < MinSeconds {
		ceiling = MinSeconds
	}

	if value < MinSeconds {
		return MinSeconds
	}
	if value > float64(ceiling) {
		return ceiling
	}
	return int(value)
}

func (e *Engine) MaxSeconds() int { return e.cfg.MaxSeconds }
