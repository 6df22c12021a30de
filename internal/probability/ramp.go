package probability

import "sync"

// Ramp is a trigger probability that resets to its base rate on a hit and
// grows multiplicatively on every miss, so a trigger eventually happens even
// in quiet channels. The factor is multiplicative (x1.3 by default) capped at
// 1.0, which converges faster than an additive step in busy channels.
type Ramp struct {
	mu     sync.Mutex
	base   float64
	factor float64
	rate   float64
}

func NewRamp(base, factor float64) *Ramp {
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	if factor < 1 {
		factor = 1.3
	}
	return &Ramp{base: base, factor: factor, rate: base}
}

func (r *Ramp) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// Hit resets the rate to the base.
func (r *Ramp) Hit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate = r.base
}

// Miss grows the rate, never past 1.
func (r *Ramp) Miss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate *= r.factor
	if r.rate > 1 {
		r.rate = 1
	}
}
