package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
)

// fakePlanStore behaves like the repo's week guard: the first insert wins,
// every later call in the same week is a no-op.
type fakePlanStore struct {
	plans    []models.StudyPlan
	sessions [][]models.StudySession
	err      error
}

func (f *fakePlanStore) CreateWithSessions(ctx context.Context, p *models.StudyPlan, sessions []models.StudySession, weekStart, weekEnd time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if len(f.plans) > 0 {
		return false, nil
	}
	f.plans = append(f.plans, *p)
	f.sessions = append(f.sessions, sessions)
	return true, nil
}

var testWeekStart = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func TestBuildWeeklyPlan_Basics(t *testing.T) {
	userID := uuid.New()
	structured := planner.Plan{
		Title:   "Algebra Plan",
		Summary: "A week of algebra.",
		Steps: []planner.Step{
			{Title: "Review factoring", Detail: "30 minutes of drills"},
			{Title: "Practice substitution"},
		},
	}

	plan, sessions := BuildWeeklyPlan(userID, "Algebra", structured, testWeekStart)

	if plan.Title != "Algebra Plan" {
		t.Errorf("Expected plan title 'Algebra Plan', got %q", plan.Title)
	}
	if plan.Status != "pending" {
		t.Errorf("Expected pending plan, got %q", plan.Status)
	}
	// 30 (clamped to itself) + 45 default = 75
	if plan.DurationMinutes != 75 {
		t.Errorf("Expected total duration 75, got %d", plan.DurationMinutes)
	}

	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Title != "Review factoring - 30 minutes of drills" {
		t.Errorf("Expected merged session title, got %q", sessions[0].Title)
	}
	if sessions[1].Title != "Practice substitution" {
		t.Errorf("Expected bare session title, got %q", sessions[1].Title)
	}
	if sessions[0].DurationMinutes != 30 || sessions[1].DurationMinutes != 45 {
		t.Errorf("Unexpected session durations: %d, %d", sessions[0].DurationMinutes, sessions[1].DurationMinutes)
	}
	if !sessions[0].ScheduledAt.Equal(testWeekStart.Add(10 * time.Hour)) {
		t.Errorf("Expected first session Monday 10:00, got %v", sessions[0].ScheduledAt)
	}
	if !sessions[1].ScheduledAt.Equal(testWeekStart.Add(24*time.Hour + 10*time.Hour)) {
		t.Errorf("Expected second session Tuesday 10:00, got %v", sessions[1].ScheduledAt)
	}
}

func TestMaterialize_SecondCallInSameWeekIsNoOp(t *testing.T) {
	store := &fakePlanStore{}
	m := NewPlanMaterializer(store)
	userID := uuid.New()
	structured := planner.Plan{
		Title:   "Algebra Plan",
		Summary: "A week of algebra.",
		Steps:   []planner.Step{{Title: "Review factoring"}},
	}

	created, err := m.Materialize(context.Background(), userID, "Algebra", structured)
	if err != nil {
		t.Fatalf("First Materialize failed: %v", err)
	}
	if !created {
		t.Fatal("Expected first Materialize to create a plan")
	}

	created, err = m.Materialize(context.Background(), userID, "Algebra", structured)
	if err != nil {
		t.Fatalf("Second Materialize failed: %v", err)
	}
	if created {
		t.Error("Expected second Materialize in the same week to be a no-op")
	}

	if len(store.plans) != 1 {
		t.Errorf("Expected exactly 1 stored plan, got %d", len(store.plans))
	}
	if len(store.sessions) != 1 || len(store.sessions[0]) != 1 {
		t.Errorf("Expected exactly 1 session batch with 1 session, got %+v", store.sessions)
	}
}

func TestMaterialize_PropagatesStoreError(t *testing.T) {
	store := &fakePlanStore{err: errors.New("connection refused")}
	m := NewPlanMaterializer(store)

	created, err := m.Materialize(context.Background(), uuid.New(), "Math", planner.Plan{Summary: "S"})
	if err == nil {
		t.Fatal("Expected error from store to propagate")
	}
	if created {
		t.Error("Expected created=false on store error")
	}
}

func TestBuildWeeklyPlan_FloorsTotalDuration(t *testing.T) {
	structured := planner.Plan{
		Title:   "Tiny",
		Summary: "One short step.",
		Steps:   []planner.Step{{Title: "Warm up 20 minutes"}},
	}

	plan, _ := BuildWeeklyPlan(uuid.New(), "Math", structured, testWeekStart)

	if plan.DurationMinutes != 30 {
		t.Errorf("Expected floor of 30 minutes, got %d", plan.DurationMinutes)
	}
}

func TestBuildWeeklyPlan_SynthesizesStepWhenEmpty(t *testing.T) {
	tests := []struct {
		name          string
		structured    planner.Plan
		expectedTitle string
	}{
		{
			"summary becomes the step",
			planner.Plan{Summary: "Study plan for goal (topic)."},
			"Study plan for goal (topic).",
		},
		{
			"topic review fallback",
			planner.Plan{Summary: "   "},
			"Biology review",
		},
		{
			"whitespace-only steps are dropped",
			planner.Plan{Summary: "S", Steps: []planner.Step{{Title: "  "}}},
			"S",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, sessions := BuildWeeklyPlan(uuid.New(), "Biology", tc.structured, testWeekStart)
			if len(sessions) != 1 {
				t.Fatalf("Expected 1 synthesized session, got %d", len(sessions))
			}
			if sessions[0].Title != tc.expectedTitle {
				t.Errorf("Expected session title %q, got %q", tc.expectedTitle, sessions[0].Title)
			}
		})
	}
}

func TestBuildWeeklyPlan_CapsSessions(t *testing.T) {
	structured := planner.Plan{Title: "Big", Summary: "S"}
	for i := 0; i < 15; i++ {
		structured.Steps = append(structured.Steps, planner.Step{Title: "Task"})
	}

	_, sessions := BuildWeeklyPlan(uuid.New(), "Math", structured, testWeekStart)

	if len(sessions) != planner.MaxSteps {
		t.Errorf("Expected %d sessions, got %d", planner.MaxSteps, len(sessions))
	}
}

func TestBuildWeeklyPlan_TruncatesLongTitles(t *testing.T) {
	long := make([]rune, 400)
	for i := range long {
		long[i] = 'x'
	}

	structured := planner.Plan{
		Title:   string(long),
		Summary: "S",
		Steps:   []planner.Step{{Title: string(long), Detail: string(long)}},
	}

	plan, sessions := BuildWeeklyPlan(uuid.New(), "Math", structured, testWeekStart)

	if len([]rune(plan.Title)) != maxTitleLen {
		t.Errorf("Expected plan title truncated to %d, got %d", maxTitleLen, len([]rune(plan.Title)))
	}
	if len([]rune(sessions[0].Title)) != maxTitleLen {
		t.Errorf("Expected session title truncated to %d, got %d", maxTitleLen, len([]rune(sessions[0].Title)))
	}
}
