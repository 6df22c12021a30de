package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is an hour-of-day range. When End is less than or equal to Start the
// window wraps past midnight ("22-6" covers 22:00 through 05:59). End itself
// is excluded.
type Window struct {
	Start int
	End   int
}

func ParseWindow(raw string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid time window %q", raw)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", raw, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", raw, err)
	}
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return Window{}, fmt.Errorf("time window %q hours must be 0-23", raw)
	}
	return Window{Start: start, End: end}, nil
}

func (w Window) Contains(t time.Time) bool {
	hour := t.Hour()
	if w.End <= w.Start {
		return hour >= w.Start || hour < w.End
	}
	return hour >= w.Start && hour < w.End
}

// Position reports where t falls inside the window as a fraction of its
// length, clamped to [0,1]. Used for probability shaping only, never gating.
func (w Window) Position(t time.Time) float64 {
	elapsed := float64(t.Hour()-w.Start) + float64(t.Minute())/60
	if t.Hour() < w.Start {
		elapsed = float64(t.Hour()+24-w.Start) + float64(t.Minute())/60
	}
	position := elapsed / float64(w.hours())
	if position < 0 {
		return 0
	}
	if position > 1 {
		return 1
	}
	return position
}

func (w Window) hours() int {
	if w.End <= w.Start {
		return w.End + 24 - w.Start
	}
	return w.End - w.Start
}
