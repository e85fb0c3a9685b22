package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasePointsTiers(t *testing.T) {
	assert.Equal(t, 0.5, BasePoints(0))
	assert.Equal(t, 0.5, BasePoints(1))
	assert.Equal(t, 1.0, BasePoints(2))
	assert.Equal(t, 1.0, BasePoints(3))
	assert.Equal(t, 2.0, BasePoints(4))
	assert.Equal(t, 2.0, BasePoints(7))
	assert.Equal(t, 4.0, BasePoints(8))
	assert.Equal(t, 4.0, BasePoints(23))
}

func TestComputePointsByCategory(t *testing.T) {
	table := DefaultTable()

	// 8 hours, multiplier 1.0
	got := ComputePoints(table, "Profession or work-relevant webinar", mustClock(t, "08:00"), mustClock(t, "16:00"))
	assert.Equal(t, 4.0, got)

	// 2 hours, multiplier 0.5
	got = ComputePoints(table, "Life-relevant webinar", mustClock(t, "08:00"), mustClock(t, "10:00"))
	assert.Equal(t, 0.5, got)

	// 4 hours, multiplier 1.5
	got = ComputePoints(table, "Profession or work-relevant seminar/workshop", mustClock(t, "13:00"), mustClock(t, "17:00"))
	assert.Equal(t, 3.0, got)
}

func TestComputePointsUnknownCategoryFallsBack(t *testing.T) {
	table := DefaultTable()
	got := ComputePoints(table, "UnknownCategoryXYZ", mustClock(t, "08:00"), mustClock(t, "12:00"))
	assert.Equal(t, 2.0, got)

	_, err := table.Resolve("UnknownCategoryXYZ")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestComputePointsNonDecreasingInDuration(t *testing.T) {
	table := DefaultTable()
	start := mustClock(t, "00:00")
	prev := 0.0
	for hour := 0; hour <= 23; hour++ {
		got := ComputePoints(table, "Life-relevant seminar/workshop", start, ClockTime{Hour: hour})
		assert.GreaterOrEqual(t, got, prev, "hour %d", hour)
		prev = got
	}
	// plateau at the top tier
	assert.Equal(t, BasePoints(8)*1.5, prev)
}

func TestSubmissionPointsMultiDay(t *testing.T) {
	table := DefaultTable()
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	entries := []DateEntry{
		{Date: day, TimeStarted: "08:00", TimeEnded: "16:00"},                   // 8h -> 4
		{Date: day.AddDate(0, 0, 1), TimeStarted: "08:00", TimeEnded: "12:00"}, // 4h -> 2
	}
	got := SubmissionPoints(table, "Profession or work-relevant webinar", entries, 0)
	assert.Equal(t, 6.0, got)
}

func TestSubmissionPointsSkipsIncompleteEntries(t *testing.T) {
	table := DefaultTable()
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	entries := []DateEntry{
		{Date: day, TimeStarted: "08:00", TimeEnded: "10:00"}, // 2h -> 1
		{TimeStarted: "08:00", TimeEnded: "16:00"},            // missing date
		{Date: day, TimeStarted: "", TimeEnded: "16:00"},      // missing start
		{Date: day, TimeStarted: "8am", TimeEnded: "16:00"},   // malformed
	}
	got := SubmissionPoints(table, "Profession or work-relevant webinar", entries, 0)
	assert.Equal(t, 1.0, got)
}

func TestSubmissionPointsManualCategoryBypassesComputation(t *testing.T) {
	table := DefaultTable()
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	entries := []DateEntry{{Date: day, TimeStarted: "08:00", TimeEnded: "16:00"}}

	got := SubmissionPoints(table, "Degree (Masters)", entries, 15)
	assert.Equal(t, 15.0, got)
}

func TestComputePointsIdempotent(t *testing.T) {
	table := DefaultTable()
	first := ComputePoints(table, "Life-relevant webinar", mustClock(t, "09:00"), mustClock(t, "17:00"))
	second := ComputePoints(table, "Life-relevant webinar", mustClock(t, "09:00"), mustClock(t, "17:00"))
	assert.Equal(t, first, second)
}
