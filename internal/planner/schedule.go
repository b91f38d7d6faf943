package planner

import (
	"regexp"
	"time"
)

const (
	// DefaultSessionMinutes is used when a step mentions no duration.
	DefaultSessionMinutes = 45
	// MinSessionMinutes / MaxSessionMinutes clamp whatever number the model
	// put into the step text.
	MinSessionMinutes = 20
	MaxSessionMinutes = 180
	// MinPlanMinutes floors the summed plan duration.
	MinPlanMinutes = 30
)

var durationRe = regexp.MustCompile(`(?i)(\d{1,3})\s*(min|minute|minutes)`)

var slotHours = []int{10, 14, 18}

// EstimateDuration extracts a "N minutes" mention from the step text and
// clamps it to a sane session length, defaulting to 45 minutes.
func EstimateDuration(title, detail string) int {
	text := title + " " + detail
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return DefaultSessionMinutes
	}

	value := 0
	for _, r := range m[1] {
		value = value*10 + int(r-'0')
	}

	if value < MinSessionMinutes {
		return MinSessionMinutes
	}
	if value > MaxSessionMinutes {
		return MaxSessionMinutes
	}
	return value
}

// ScheduleSlot places the step at position index into the week starting at
// weekStart (Monday 00:00 UTC). Steps spread across the seven weekdays
// before any day gets a second slot; slots beyond the third collapse onto
// the evening slot instead of spilling into a new day.
func ScheduleSlot(weekStart time.Time, index int) time.Time {
	dayOffset := index % 7
	slotIndex := index / 7
	if slotIndex >= len(slotHours) {
		slotIndex = len(slotHours) - 1
	}
	return weekStart.Add(time.Duration(dayOffset)*24*time.Hour + time.Duration(slotHours[slotIndex])*time.Hour)
}

// WeekBounds returns the [Monday 00:00 UTC, next Monday 00:00 UTC) window
// containing now.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	utc := now.UTC()
	offset := (int(utc.Weekday()) + 6) % 7
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}
