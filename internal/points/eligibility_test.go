package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsDateEligibleClosedTerm(t *testing.T) {
	window := TermWindow{StartDate: date(2024, 1, 1), EndDate: date(2024, 6, 1)}
	today := date(2024, 7, 15)

	assert.True(t, IsDateEligible(date(2024, 3, 15), window, today))
	assert.True(t, IsDateEligible(date(2024, 1, 1), window, today))
	assert.True(t, IsDateEligible(date(2024, 6, 1), window, today))
	assert.False(t, IsDateEligible(date(2023, 12, 31), window, today))
	assert.False(t, IsDateEligible(date(2024, 6, 2), window, today))
}

func TestIsDateEligibleOngoingTermIgnoresEndDate(t *testing.T) {
	// end date already behind us; ongoing terms accept up to today
	window := TermWindow{StartDate: date(2024, 1, 1), EndDate: date(2024, 2, 1), IsOngoing: true}
	today := date(2024, 5, 10)

	assert.True(t, IsDateEligible(date(2024, 3, 15), window, today))
	assert.True(t, IsDateEligible(today, window, today))
	assert.False(t, IsDateEligible(date(2024, 5, 11), window, today))
	assert.False(t, IsDateEligible(date(2023, 12, 31), window, today))
}

func TestIsDateEligibleNormalizesTimeOfDay(t *testing.T) {
	window := TermWindow{StartDate: date(2024, 1, 1), EndDate: date(2024, 6, 1)}
	today := date(2024, 7, 15)

	// late evening on the boundary day still counts
	lastDay := time.Date(2024, 6, 1, 23, 45, 0, 0, time.UTC)
	assert.True(t, IsDateEligible(lastDay, window, today))

	// a non-UTC timestamp on the same calendar day in UTC
	zone := time.FixedZone("UTC+8", 8*3600)
	sameDay := time.Date(2024, 6, 1, 20, 0, 0, 0, zone) // 12:00 UTC on Jun 1
	assert.True(t, IsDateEligible(sameDay, window, today))
}

func TestIsPastDate(t *testing.T) {
	today := date(2024, 5, 10)
	assert.True(t, IsPastDate(date(2024, 5, 9), today))
	assert.False(t, IsPastDate(today, today))
	assert.False(t, IsPastDate(date(2024, 5, 11), today))
}
