package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockLayout is the minute-resolution wall clock format used for fire times
// and execution lock keys.
const ClockLayout = "15:04"

// ParseClock validates a strict "HH:MM" 24h string and returns hour and minute.
func ParseClock(value string) (int, int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, 0, fmt.Errorf("invalid time format %q, expected HH:MM", value)
	}
	hour, err := strconv.Atoi(value[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(value[3:])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

// LoadLocation resolves an IANA zone name. Empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// MinuteKey formats now as HH:MM in loc. Seconds are dropped.
func MinuteKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(ClockLayout)
}

// Matches reports whether now, seen in loc, is one of the fire times.
// When weekly is true the weekday (0=Sunday..6=Saturday) must also be listed.
func Matches(fireTimes []string, weekly bool, weekDays []int, loc *time.Location, now time.Time) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	current := local.Format(ClockLayout)

	hit := false
	for _, ft := range fireTimes {
		if ft == current {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	if !weekly {
		return true
	}
	day := int(local.Weekday())
	for _, d := range weekDays {
		if d == day {
			return true
		}
	}
	return false
}

// UntilNextMinute returns the delay from now to the next wall-clock minute boundary.
func UntilNextMinute(now time.Time) time.Duration {
	next := now.Truncate(time.Minute).Add(time.Minute)
	return next.Sub(now)
}

// NextOccurrence returns the first fire instant strictly after from.
// Days are scanned in loc so DST shifts keep the configured wall clock.
func NextOccurrence(fireTimes []string, weekly bool, weekDays []int, loc *time.Location, from time.Time) (time.Time, error) {
	if len(fireTimes) == 0 {
		return time.Time{}, fmt.Errorf("fireTimes are required")
	}
	if loc == nil {
		loc = time.UTC
	}

	targetDays := make(map[int]bool)
	for _, d := range weekDays {
		if d < 0 || d > 6 {
			return time.Time{}, fmt.Errorf("day must be between 0 and 6")
		}
		targetDays[d] = true
	}
	if weekly && len(targetDays) == 0 {
		return time.Time{}, fmt.Errorf("weekly schedules need at least one weekday")
	}

	type clock struct{ hour, minute int }
	clocks := make([]clock, 0, len(fireTimes))
	for _, ft := range fireTimes {
		h, m, err := ParseClock(ft)
		if err != nil {
			return time.Time{}, err
		}
		clocks = append(clocks, clock{h, m})
	}

	local := from.In(loc)
	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		if weekly && !targetDays[int(day.Weekday())] {
			continue
		}
		var best time.Time
		for _, c := range clocks {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, loc)
			if !candidate.After(from) {
				continue
			}
			if best.IsZero() || candidate.Before(best) {
				best = candidate
			}
		}
		if !best.IsZero() {
			return best, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not find next occurrence within a week")
}
