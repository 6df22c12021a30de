package probability

import "time"

type seasonalEvent struct {
	month      time.Month
	day        int
	multiplier float64
}

// At most one event per calendar day.
var seasonalEvents = []seasonalEvent{
	{time.January, 1, 0.5},
	{time.April, 1, 2.0},
	{time.October, 31, 1.5},
	{time.December, 25, 0.8},
	{time.December, 31, 1.2},
}

// SeasonalMultiplier returns the duration multiplier for t's calendar day, or
// 1 when no event matches.
func SeasonalMultiplier(t time.Time) float64 {
	for _, event := range seasonalEvents {
		if t.Month() == event.month && t.Day() == event.day {
			return event.multiplier
		}
	}
	return 1
}
