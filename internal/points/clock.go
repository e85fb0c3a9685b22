// Package points implements the SWTD point computation rules: duration
// derivation from wall-clock times, category multipliers, term eligibility
// windows and clearance aggregation. Everything here is a deterministic
// function of its inputs; the current date and category table are always
// passed in by the caller, never read ambiently.
package points

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day in 24-hour format.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string into a ClockTime.
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// MinuteOfDay returns the minute offset from midnight.
func (t ClockTime) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// String renders the time back to "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// HoursBetween computes elapsed whole hours from start to end. An end time
// earlier than the start means the activity crossed midnight, so a full day
// is added before truncating to hours. Equal times yield 0, not 24.
func HoursBetween(start, end ClockTime) int {
	minutes := end.MinuteOfDay() - start.MinuteOfDay()
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return minutes / 60
}
