package utils

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.June, 10, hour, minute, 0, 0, time.UTC)
}

func TestParseWindow(t *testing.T) {
	win, err := ParseWindow("9-18")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if win.Start != 9 || win.End != 18 {
		t.Fatalf("expected 9-18, got %d-%d", win.Start, win.End)
	}

	for _, raw := range []string{"", "9", "25-3", "9-24", "a-b"} {
		if _, err := ParseWindow(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestWindowContains(t *testing.T) {
	day, _ := ParseWindow("9-18")
	if !day.Contains(at(10, 0)) {
		t.Fatalf("10:00 should be inside 9-18")
	}
	if day.Contains(at(18, 0)) {
		t.Fatalf("18:00 should be outside 9-18")
	}
	if day.Contains(at(19, 0)) {
		t.Fatalf("19:00 should be outside 9-18")
	}

	night, _ := ParseWindow("22-6")
	if !night.Contains(at(23, 0)) {
		t.Fatalf("23:00 should be inside 22-6")
	}
	if !night.Contains(at(5, 59)) {
		t.Fatalf("05:59 should be inside 22-6")
	}
	if night.Contains(at(12, 0)) {
		t.Fatalf("12:00 should be outside 22-6")
	}
}

func TestWindowPosition(t *testing.T) {
	win, _ := ParseWindow("10-20")
	if got := win.Position(at(15, 0)); got != 0.5 {
		t.Fatalf("expected midpoint 0.5, got %v", got)
	}
	if got := win.Position(at(10, 0)); got != 0 {
		t.Fatalf("expected 0 at start, got %v", got)
	}

	night, _ := ParseWindow("22-6")
	if got := night.Position(at(2, 0)); got != 0.5 {
		t.Fatalf("expected wrapped midpoint 0.5, got %v", got)
	}
}
