package domain

import (
	"fmt"
	"strings"
	"time"
)

// Clock-time layouts accepted for pickup/dropoff fields. Upstream imports mix
// 24-hour values with 12-hour AM/PM values, sometimes without the space.
var clockLayouts = []string{
	"15:04",
	"3:04 PM",
	"3:04PM",
	"15:04:05",
}

// ParseClockTime parses a wall-clock time string into minutes since midnight.
// Returns ErrParse for empty or unrecognized input.
func ParseClockTime(value string) (int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return 0, fmt.Errorf("%w: empty clock time", ErrParse)
	}

	for _, layout := range clockLayouts {
		parsed, err := time.Parse(layout, normalized)
		if err != nil {
			continue
		}
		return parsed.Hour()*60 + parsed.Minute(), nil
	}

	return 0, fmt.Errorf("%w: unrecognized clock time %q", ErrParse, value)
}

// ClockTimeOnDate anchors minutes-since-midnight onto a calendar day in UTC.
func ClockTimeOnDate(date time.Time, minutes int) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(minutes) * time.Minute)
}

// MinutesBetween returns the whole minutes elapsed from earlier to later.
func MinutesBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier) / time.Minute)
}
