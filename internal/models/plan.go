package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan/session statuses. A plan's status is always derived from its
// sessions, never set directly by a client.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

type StudyPlan struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Title           string    `json:"title"`
	Topic           string    `json:"topic"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type StudySession struct {
	ID              uuid.UUID  `json:"id"`
	PlanID          *uuid.UUID `json:"plan_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Title           string     `json:"title"`
	Topic           string     `json:"topic"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AggregatePlanStatus derives a plan's status from the statuses of all of
// its sessions: every session done means done, any session in progress
// means in progress, everything else is pending.
func AggregatePlanStatus(statuses []string) string {
	if len(statuses) == 0 {
		return StatusPending
	}

	allDone := true
	anyInProgress := false
	for _, s := range statuses {
		if s != StatusDone {
			allDone = false
		}
		if s == StatusInProgress {
			anyInProgress = true
		}
	}

	if allDone {
		return StatusDone
	}
	if anyInProgress {
		return StatusInProgress
	}
	return StatusPending
}
