package planner

import (
	"testing"
	"time"
)

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		detail   string
		expected int
	}{
		{"no pattern uses default", "Review chapter", "", 45},
		{"clamped down", "Practice for 200 minutes", "", 180},
		{"clamped up", "Warm up 5 minutes", "", 20},
		{"exact minutes", "Drill for 90 minutes", "", 90},
		{"min abbreviation", "Quick 30 min recap", "", 30},
		{"pattern in detail", "Review", "spend 60 minutes on flashcards", 60},
		{"case insensitive", "45 MINUTES of reading", "", 45},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateDuration(tc.title, tc.detail); got != tc.expected {
				t.Errorf("EstimateDuration(%q, %q) = %d, expected %d", tc.title, tc.detail, got, tc.expected)
			}
		})
	}
}

func TestScheduleSlot(t *testing.T) {
	weekStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) // a Monday

	tests := []struct {
		name     string
		index    int
		expected time.Time
	}{
		{"first step monday morning", 0, weekStart.Add(10 * time.Hour)},
		{"seventh step sunday morning", 6, weekStart.Add(6*24*time.Hour + 10*time.Hour)},
		{"eighth step wraps to monday afternoon", 7, weekStart.Add(14 * time.Hour)},
		{"fifteenth step monday evening", 14, weekStart.Add(18 * time.Hour)},
		{"overflow clamps to evening slot", 20, weekStart.Add(6*24*time.Hour + 18*time.Hour)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScheduleSlot(weekStart, tc.index)
			if !got.Equal(tc.expected) {
				t.Errorf("ScheduleSlot(weekStart, %d) = %v, expected %v", tc.index, got, tc.expected)
			}
		})
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name          string
		now           time.Time
		expectedStart time.Time
	}{
		{
			"midweek",
			time.Date(2026, 9, 2, 15, 30, 0, 0, time.UTC), // Wednesday
			time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday maps to itself",
			time.Date(2026, 8, 31, 0, 0, 1, 0, time.UTC),
			time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday maps back to monday",
			time.Date(2026, 9, 6, 23, 59, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := WeekBounds(tc.now)
			if !start.Equal(tc.expectedStart) {
				t.Errorf("WeekBounds(%v) start = %v, expected %v", tc.now, start, tc.expectedStart)
			}
			if !end.Equal(tc.expectedStart.AddDate(0, 0, 7)) {
				t.Errorf("WeekBounds(%v) end = %v, expected %v", tc.now, end, tc.expectedStart.AddDate(0, 0, 7))
			}
			if !tc.now.UTC().Before(end) || tc.now.UTC().Before(start) {
				t.Errorf("now %v not inside [%v, %v)", tc.now, start, end)
			}
		})
	}
}
