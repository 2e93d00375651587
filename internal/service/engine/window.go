package engine

import (
	"fmt"
	"time"
)

// ParseClock converts a "HH:MM" schedule string to a minute-of-day integer.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("malformed clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return hh*60 + mm, nil
}

// InWindow reports whether now falls inside the daily window [start, end],
// all in minute-of-day. Both boundaries are inclusive. A window whose end
// is numerically smaller than its start crosses midnight. An equal
// start/end is a degraded window and never matches.
func InWindow(now, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

// inWindowAt evaluates the stored schedule strings at t. Malformed
// schedules degrade to "never in window" rather than failing the tick.
func inWindowAt(t time.Time, startStr, endStr string) bool {
	start, err := ParseClock(startStr)
	if err != nil {
		return false
	}
	end, err := ParseClock(endStr)
	if err != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	return InWindow(now, start, end)
}
