package timeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, loc *time.Location, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	require.NoError(t, err)
	return ts
}

func TestMatches_DailyOnlyAtFireMinutes(t *testing.T) {
	fire := []string{"08:00", "14:00"}

	hits := 0
	day := at(t, time.UTC, "2026-10-12 00:00:00")
	for i := 0; i < 24*60; i++ {
		now := day.Add(time.Duration(i) * time.Minute)
		if Matches(fire, false, nil, time.UTC, now) {
			hits++
			assert.Contains(t, fire, now.Format(ClockLayout))
		}
	}
	assert.Equal(t, 2, hits)

	assert.False(t, Matches(fire, false, nil, time.UTC, at(t, time.UTC, "2026-10-12 07:59:59")))
	assert.True(t, Matches(fire, false, nil, time.UTC, at(t, time.UTC, "2026-10-12 08:00:00")))
	assert.True(t, Matches(fire, false, nil, time.UTC, at(t, time.UTC, "2026-10-12 08:00:59")))
	assert.False(t, Matches(fire, false, nil, time.UTC, at(t, time.UTC, "2026-10-12 08:01:00")))
}

func TestMatches_WeeklyGating(t *testing.T) {
	fire := []string{"09:00"}
	weekdays := []int{1, 2, 3, 4, 5}

	saturday := at(t, time.UTC, "2026-10-10 09:00:00")
	sunday := at(t, time.UTC, "2026-10-11 09:00:00")
	monday := at(t, time.UTC, "2026-10-12 09:00:00")

	assert.False(t, Matches(fire, true, weekdays, time.UTC, saturday))
	assert.False(t, Matches(fire, true, weekdays, time.UTC, sunday))
	assert.True(t, Matches(fire, true, weekdays, time.UTC, monday))

	// daily and custom kinds ignore weekdays
	assert.True(t, Matches(fire, false, weekdays, time.UTC, saturday))
}

func TestMatches_UsesScheduleTimezone(t *testing.T) {
	jakarta, err := LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 01:00 UTC is 08:00 in Jakarta (UTC+7)
	now := at(t, time.UTC, "2026-10-12 01:00:00")
	assert.True(t, Matches([]string{"08:00"}, false, nil, jakarta, now))
	assert.False(t, Matches([]string{"08:00"}, false, nil, time.UTC, now))
	assert.Equal(t, "08:00", MinuteKey(now, jakarta))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)

	for _, bad := range []string{"24:00", "8:00", "08:60", "0800", "ab:cd", ""} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestUntilNextMinute(t *testing.T) {
	now := at(t, time.UTC, "2026-10-12 10:15:42")
	assert.Equal(t, 18*time.Second, UntilNextMinute(now))

	aligned := at(t, time.UTC, "2026-10-12 10:15:00")
	assert.Equal(t, time.Minute, UntilNextMinute(aligned))
}

func TestNextOccurrence(t *testing.T) {
	from := at(t, time.UTC, "2026-10-12 08:30:00") // Monday

	next, err := NextOccurrence([]string{"08:00", "14:00"}, false, nil, time.UTC, from)
	require.NoError(t, err)
	assert.Equal(t, at(t, time.UTC, "2026-10-12 14:00:00"), next)

	// Friday 09:00 has passed, next weekday slot is Monday
	friday := at(t, time.UTC, "2026-10-16 10:00:00")
	next, err = NextOccurrence([]string{"09:00"}, true, []int{1, 5}, time.UTC, friday)
	require.NoError(t, err)
	assert.Equal(t, at(t, time.UTC, "2026-10-19 09:00:00"), next)

	_, err = NextOccurrence(nil, false, nil, time.UTC, from)
	assert.Error(t, err)

	_, err = NextOccurrence([]string{"09:00"}, true, nil, time.UTC, from)
	assert.Error(t, err)
}
