package points

import "time"

// DateOnly normalizes a timestamp to its UTC calendar date. All window
// comparisons in this package operate on normalized dates so time-of-day and
// zone offsets cannot flip an eligibility verdict.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TermWindow is the submission window of one compliance period.
type TermWindow struct {
	StartDate time.Time
	EndDate   time.Time
	IsOngoing bool
}

// IsDateEligible reports whether an activity date falls inside the term's
// valid submission window. Ongoing terms accept dates from the term start up
// to today; the stored end date is ignored so an in-progress term keeps
// accepting submissions. Closed terms are bound by their end date.
func IsDateEligible(date time.Time, window TermWindow, today time.Time) bool {
	d := DateOnly(date)
	start := DateOnly(window.StartDate)
	if d.Before(start) {
		return false
	}

	upper := DateOnly(window.EndDate)
	if window.IsOngoing {
		upper = DateOnly(today)
	}
	return !d.After(upper)
}

// IsPastDate reports whether the date is strictly before today. Used to gate
// edits to a term itself, not to its submissions.
func IsPastDate(date time.Time, today time.Time) bool {
	return DateOnly(date).Before(DateOnly(today))
}
