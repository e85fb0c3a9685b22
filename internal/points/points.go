package points

import "time"

// BasePoints maps a duration in whole hours to base points. Tiers are
// evaluated from the largest threshold down; anything under two hours is
// worth half a point.
func BasePoints(hours int) float64 {
	switch {
	case hours >= 8:
		return 4
	case hours >= 4:
		return 2
	case hours >= 2:
		return 1
	default:
		return 0.5
	}
}

// ComputePoints derives the points for a single day of activity: the
// duration-based base points scaled by the category multiplier. Unknown
// categories score with the default multiplier.
func ComputePoints(table Table, categoryName string, start, end ClockTime) float64 {
	category := table.Lookup(categoryName)
	return BasePoints(HoursBetween(start, end)) * category.Multiplier
}

// DateEntry is one day of a multi-day activity. Times are "HH:MM" strings as
// captured on the submission form.
type DateEntry struct {
	Date        time.Time
	TimeStarted string
	TimeEnded   string
}

// SubmissionPoints totals the points for a full submission. Manual-point
// categories return the provided manual value untouched. Entries with a
// missing date or malformed times are skipped rather than rejected.
func SubmissionPoints(table Table, categoryName string, entries []DateEntry, manualPoints float64) float64 {
	category := table.Lookup(categoryName)
	if category.RequiresManualPoints {
		return manualPoints
	}

	var total float64
	for _, entry := range entries {
		if entry.Date.IsZero() {
			continue
		}
		start, err := ParseClock(entry.TimeStarted)
		if err != nil {
			continue
		}
		end, err := ParseClock(entry.TimeEnded)
		if err != nil {
			continue
		}
		total += BasePoints(HoursBetween(start, end)) * category.Multiplier
	}
	return total
}
