package duration

import "testing"

type fakeSource struct {
	float float64
	ints  []int
}

func (f *fakeSource) Float() float64 { return f.float }

func (f *fakeSource) IntRange(min, max int) int {
	if len(f.ints) > 0 {
		v := f.ints[0]
		f.ints = f.ints[1:]
		return v
	}
	return min
}

func (f *fakeSource) Bool(p float64) bool { return false }

func (f *fakeSource) Shuffle(n int, swap func(i, j int)) {}

func TestComputeFixedNoModifiers(t *testing.T) {
	engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 86400}, &fakeSource{float: 0.5})
	got := engine.Compute(Request{FixedSeconds: 600})
	if got != 600 {
		t.Fatalf("zero jitter and no modifiers must pass through, got %d", got)
	}
}

func TestComputeCriticalDoubles(t *testing.T) {
	engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 86400}, &fakeSource{float: 0.5})
	got := engine.Compute(Request{FixedSeconds: 600, Critical: true})
	if got != 1200 {
		t.Fatalf("critical must double, got %d", got)
	}
}

func TestComputeMultiplier(t *testing.T) {
	engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 86400}, &fakeSource{float: 0.5})
	got := engine.Compute(Request{FixedSeconds: 600, Multiplier: 1.5})
	if got != 900 {
		t.Fatalf("multiplier 1.5 on 600s must give 900, got %d", got)
	}
}

func TestComputeClampBounds(t *testing.T) {
	engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 3600}, &fakeSource{float: 0.999})
	got := engine.Compute(Request{FixedSeconds: 3600, Critical: true, Multiplier: 2})
	if got != 3600 {
		t.Fatalf("expected clamp to ceiling 3600, got %d", got)
	}

	engine = NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 3600}, &fakeSource{float: 0})
	got = engine.Compute(Request{FixedSeconds: 1})
	if got != MinSeconds {
		t.Fatalf("expected floor %d, got %d", MinSeconds, got)
	}
}

func TestComputeCapTightensCeiling(t *testing.T) {
	engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 86400}, &fakeSource{float: 0.5})
	got := engine.Compute(Request{FixedSeconds: 600, CapSeconds: 300})
	if got != 300 {
		t.Fatalf("per-guild cap 300 must clamp 600, got %d", got)
	}

	// A cap above the global ceiling must not loosen it.
	engine = NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 3600}, &fakeSource{float: 0.5})
	got = engine.Compute(Request{FixedSeconds: 7200, CapSeconds: 90000})
	if got != 3600 {
		t.Fatalf("cap above the ceiling must keep the ceiling, got %d", got)
	}
}

func TestComputeRandomBaseWithinRange(t *testing.T) {
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		engine := NewEngine(Config{MinMinutes: 1, MaxMinutes: 30, MaxSeconds: 86400}, &fakeSource{float: f, ints: []int{60, 1800, 900}})
		for i := 0; i < 3; i++ {
			got := engine.Compute(Request{})
			if got < MinSeconds || got > 86400 {
				t.Fatalf("duration %d out of bounds with jitter draw %v", got, f)
			}
		}
	}
}
