package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
)

// maxTitleLen matches the study_plans/study_sessions column width.
const maxTitleLen = 180

// planStore is the slice of PlanRepo the materializer needs.
type planStore interface {
	CreateWithSessions(ctx context.Context, p *models.StudyPlan, sessions []models.StudySession, weekStart, weekEnd time.Time) (bool, error)
}

// PlanMaterializer converts a normalized plan structure into one StudyPlan
// and its scheduled StudySessions, at most once per user per calendar week.
type PlanMaterializer struct {
	planRepo planStore
}

func NewPlanMaterializer(planRepo planStore) *PlanMaterializer {
	return &PlanMaterializer{planRepo: planRepo}
}

// Materialize persists the weekly plan for the user. When a plan already
// exists for the current week the call is a silent no-op and returns false.
func (m *PlanMaterializer) Materialize(ctx context.Context, userID uuid.UUID, topic string, structured planner.Plan) (bool, error) {
	weekStart, weekEnd := planner.WeekBounds(time.Now())

	plan, sessions := BuildWeeklyPlan(userID, topic, structured, weekStart)

	created, err := m.planRepo.CreateWithSessions(ctx, &plan, sessions, weekStart, weekEnd)
	if err != nil {
		return false, err
	}
	if !created {
		log.Printf("Weekly plan already exists for user %s; skipping materialization", userID)
	}
	return created, nil
}

// BuildWeeklyPlan assembles the plan and session entities from a normalized
// structure. Pure: persistence and the uniqueness guard live in the repo.
func BuildWeeklyPlan(userID uuid.UUID, topic string, structured planner.Plan, weekStart time.Time) (models.StudyPlan, []models.StudySession) {
	steps := usableSteps(structured, topic)

	total := 0
	for _, step := range steps {
		total += planner.EstimateDuration(step.Title, step.Detail)
	}
	if total < planner.MinPlanMinutes {
		total = planner.MinPlanMinutes
	}

	title := structured.Title
	if title == "" {
		title = topic + " Weekly Plan"
	}

	plan := models.StudyPlan{
		UserID:          userID,
		Title:           truncate(title, maxTitleLen),
		Topic:           topic,
		DurationMinutes: total,
		Status:          models.StatusPending,
	}

	sessions := make([]models.StudySession, 0, len(steps))
	for i, step := range steps {
		mergedTitle := step.Title
		if step.Detail != "" {
			mergedTitle = step.Title + " - " + step.Detail
		}

		scheduledAt := planner.ScheduleSlot(weekStart, i)
		sessions = append(sessions, models.StudySession{
			UserID:          userID,
			Title:           truncate(mergedTitle, maxTitleLen),
			Topic:           topic,
			DurationMinutes: planner.EstimateDuration(step.Title, step.Detail),
			Status:          models.StatusPending,
			ScheduledAt:     &scheduledAt,
		})
	}

	return plan, sessions
}

// usableSteps keeps steps with a non-empty title, capped at the plan limit,
// synthesizing a single review step when nothing survives.
func usableSteps(structured planner.Plan, topic string) []planner.Step {
	steps := make([]planner.Step, 0, len(structured.Steps))
	for _, step := range structured.Steps {
		if strings.TrimSpace(step.Title) == "" {
			continue
		}
		steps = append(steps, step)
		if len(steps) == planner.MaxSteps {
			break
		}
	}

	if len(steps) == 0 {
		title := structured.Summary
		if strings.TrimSpace(title) == "" {
			title = topic + " review"
		}
		steps = append(steps, planner.Step{Title: title})
	}

	return steps
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
