package probability

import (
	"testing"
	"time"
)

func TestDurationCurveMonotonic(t *testing.T) {
	prev := 2.0
	for minutes := 0; minutes <= 120; minutes += 10 {
		p := DurationCurve(0.7, minutes, 15)
		if p > prev {
			t.Fatalf("curve must decrease, got %v after %v at %d minutes", p, prev, minutes)
		}
		if p < 0.01 || p > 1 {
			t.Fatalf("curve out of bounds at %d minutes: %v", minutes, p)
		}
		prev = p
	}
	if got := DurationCurve(0.7, 0, 15); got != 0.7 {
		t.Fatalf("zero minutes must return base, got %v", got)
	}
}

func TestDurationCurveFloor(t *testing.T) {
	if got := DurationCurve(0.1, 10000, 15); got != 0.01 {
		t.Fatalf("expected floor 0.01, got %v", got)
	}
}

func TestTimeOfDayCurve(t *testing.T) {
	if got := TimeOfDayCurve(0.1, 0.5, 0.5); got != 0.5 {
		t.Fatalf("midpoint must peak at max, got %v", got)
	}
	if got := TimeOfDayCurve(0.1, 0.5, 0); got != 0.1 {
		t.Fatalf("edge must fall to min, got %v", got)
	}
	if got := TimeOfDayCurve(0.1, 0.5, 1); got != 0.1 {
		t.Fatalf("edge must fall to min, got %v", got)
	}
	left := TimeOfDayCurve(0.1, 0.5, 0.25)
	right := TimeOfDayCurve(0.1, 0.5, 0.75)
	if left != right {
		t.Fatalf("curve must be symmetric, got %v and %v", left, right)
	}
}

func TestRepeatCurve(t *testing.T) {
	low := RepeatCurve(2, 7.5, 1)
	high := RepeatCurve(10, 7.5, 1)
	if low > 0.01 {
		t.Fatalf("below threshold should be near zero, got %v", low)
	}
	if high < 0.9 {
		t.Fatalf("above threshold should saturate, got %v", high)
	}
	if RepeatCurve(7, 7.5, 1) >= RepeatCurve(8, 7.5, 1) {
		t.Fatalf("curve must increase with count")
	}
}

func TestRampMonotonic(t *testing.T) {
	ramp := NewRamp(0.05, 1.3)
	prev := ramp.Rate()
	for i := 0; i < 50; i++ {
		ramp.Miss()
		rate := ramp.Rate()
		if rate < prev {
			t.Fatalf("rate decreased on miss: %v -> %v", prev, rate)
		}
		if rate > 1 {
			t.Fatalf("rate exceeded 1: %v", rate)
		}
		prev = rate
	}

	ramp.Hit()
	if got := ramp.Rate(); got != 0.05 {
		t.Fatalf("hit must reset to base, got %v", got)
	}
}

func TestSeasonalMultiplier(t *testing.T) {
	cases := []struct {
		day  time.Time
		want float64
	}{
		{time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC), 0.5},
		{time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC), 2.0},
		{time.Date(2025, time.October, 31, 12, 0, 0, 0, time.UTC), 1.5},
		{time.Date(2025, time.December, 25, 12, 0, 0, 0, time.UTC), 0.8},
		{time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC), 1.2},
		{time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC), 1.0},
	}
	for _, tc := range cases {
		if got := SeasonalMultiplier(tc.day); got != tc.want {
			t.Fatalf("multiplier for %v: expected %v, got %v", tc.day, tc.want, got)
		}
	}
}
