package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, raw string) ClockTime {
	t.Helper()
	ct, err := ParseClock(raw)
	require.NoError(t, err)
	return ct
}

func TestParseClock(t *testing.T) {
	ct, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, ct.Hour)
	assert.Equal(t, 30, ct.Minute)
	assert.Equal(t, "09:30", ct.String())

	for _, raw := range []string{"", "9", "25:00", "12:60", "ab:cd", "12-30"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestHoursBetween(t *testing.T) {
	cases := []struct {
		start, end string
		hours      int
	}{
		{"09:00", "11:00", 2},
		{"23:00", "01:00", 2}, // crosses midnight
		{"10:00", "10:00", 0},
		{"08:00", "16:00", 8},
		{"08:00", "09:59", 1}, // partial hours truncate
		{"08:30", "10:00", 1},
		{"22:30", "06:30", 8},
		{"00:00", "23:59", 23},
	}
	for _, tc := range cases {
		got := HoursBetween(mustClock(t, tc.start), mustClock(t, tc.end))
		assert.Equal(t, tc.hours, got, "%s -> %s", tc.start, tc.end)
	}
}
