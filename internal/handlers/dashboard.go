package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"schediora-backend/internal/middleware"
	"schediora-backend/internal/models"
	"schediora-backend/internal/repository"
)

type DashboardHandler struct {
	sessionRepo *repository.SessionRepo
}

func NewDashboardHandler(sessionRepo *repository.SessionRepo) *DashboardHandler {
	return &DashboardHandler{sessionRepo: sessionRepo}
}

type focusTrendPoint struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

type subjectSlice struct {
	Subject string `json:"subject"`
	Minutes int    `json:"minutes"`
}

type dashboardSummary struct {
	TodayCompleted      int               `json:"today_completed"`
	TodayTotal          int               `json:"today_total"`
	StreakDays          int               `json:"streak_days"`
	WeeklyProgress      []int             `json:"weekly_progress"`
	FocusMinutesTrend   []focusTrendPoint `json:"focus_minutes_trend"`
	SubjectDistribution []subjectSlice    `json:"subject_distribution"`
}

// Summary aggregates the user's sessions into dashboard counters. All day
// arithmetic is UTC calendar days.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	rangeKey := r.URL.Query().Get("range")
	if rangeKey == "" {
		rangeKey = "7d"
	}
	if rangeKey != "7d" && rangeKey != "30d" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "range must be '7d' or '30d'", r))
		return
	}

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load sessions", r))
		return
	}

	today := dayOf(time.Now())
	days := 7
	if rangeKey == "30d" {
		days = 30
	}
	since := today.AddDate(0, 0, -(days - 1))

	summary := dashboardSummary{
		WeeklyProgress:    []int{},
		FocusMinutesTrend: []focusTrendPoint{},
	}

	doneDays := map[time.Time]bool{}
	completedByDay := map[time.Time]int{}

	for _, s := range sessions {
		if scheduleDay(s).Equal(today) {
			summary.TodayTotal++
		}

		doneDay, ok := sessionDoneDay(s)
		if !ok {
			continue
		}
		doneDays[doneDay] = true
		if doneDay.Equal(today) {
			summary.TodayCompleted++
		}
		if !doneDay.Before(since) {
			completedByDay[doneDay]++
		}
	}

	// Streak: consecutive days ending today with at least one done session.
	for cursor := today; doneDays[cursor]; cursor = cursor.AddDate(0, 0, -1) {
		summary.StreakDays++
	}

	if rangeKey == "7d" {
		weekStart := today.AddDate(0, 0, -weekdayIndex(today))
		for offset := 0; offset < 7; offset++ {
			summary.WeeklyProgress = append(summary.WeeklyProgress, completedByDay[weekStart.AddDate(0, 0, offset)])
		}
	} else {
		// 4-day buckets walking back from today, oldest first.
		buckets := []int{}
		for offset := 0; offset < 30; offset += 4 {
			start := today.AddDate(0, 0, -(offset + 3))
			end := today.AddDate(0, 0, -offset)
			value := 0
			for day, count := range completedByDay {
				if !day.Before(start) && !day.After(end) {
					value += count
				}
			}
			buckets = append(buckets, value)
		}
		for i := len(buckets) - 1; i >= 0 && len(summary.WeeklyProgress) < 7; i-- {
			summary.WeeklyProgress = append(summary.WeeklyProgress, buckets[i])
		}
	}

	for chunk := 0; chunk < 4; chunk++ {
		end := today.AddDate(0, 0, -(3-chunk)*7)
		start := end.AddDate(0, 0, -6)
		minutes := 0
		for _, s := range sessions {
			if doneDay, ok := sessionDoneDay(s); ok && !doneDay.Before(start) && !doneDay.After(end) {
				minutes += s.DurationMinutes
			}
		}
		summary.FocusMinutesTrend = append(summary.FocusMinutesTrend, focusTrendPoint{
			Label:   fmt.Sprintf("W%d", chunk+1),
			Minutes: minutes,
		})
	}

	summary.SubjectDistribution = subjectDistribution(sessions, since)

	writeJSON(w, http.StatusOK, summary)
}

// subjectDistribution sums done minutes per topic in the window, falling
// back to all in-window sessions and then to zeroed placeholder subjects.
func subjectDistribution(sessions []models.StudySession, since time.Time) []subjectSlice {
	inWindow := []models.StudySession{}
	for _, s := range sessions {
		if !scheduleDay(s).Before(since) {
			inWindow = append(inWindow, s)
		}
	}

	totals := map[string]int{}
	for _, s := range inWindow {
		if s.Status == models.StatusDone {
			totals[s.Topic] += s.DurationMinutes
		}
	}
	if len(totals) == 0 {
		for _, s := range inWindow {
			totals[s.Topic] += s.DurationMinutes
		}
	}

	if len(totals) == 0 {
		return []subjectSlice{
			{Subject: "Math", Minutes: 0},
			{Subject: "Biology", Minutes: 0},
			{Subject: "English", Minutes: 0},
		}
	}

	slices := make([]subjectSlice, 0, len(totals))
	for subject, minutes := range totals {
		slices = append(slices, subjectSlice{Subject: subject, Minutes: minutes})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Minutes != slices[j].Minutes {
			return slices[i].Minutes > slices[j].Minutes
		}
		return slices[i].Subject < slices[j].Subject
	})
	if len(slices) > 4 {
		slices = slices[:4]
	}
	return slices
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekdayIndex maps Monday to 0 and Sunday to 6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func scheduleDay(s models.StudySession) time.Time {
	if s.ScheduledAt != nil {
		return dayOf(*s.ScheduledAt)
	}
	return dayOf(s.CreatedAt)
}

func sessionDoneDay(s models.StudySession) (time.Time, bool) {
	if s.Status != models.StatusDone || s.CompletedAt == nil {
		return time.Time{}, false
	}
	return dayOf(*s.CompletedAt), true
}
