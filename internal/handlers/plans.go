package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"schediora-backend/internal/middleware"
	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
	"schediora-backend/internal/repository"
)

type PlanHandler struct {
	planRepo    *repository.PlanRepo
	sessionRepo *repository.SessionRepo
}

func NewPlanHandler(planRepo *repository.PlanRepo, sessionRepo *repository.SessionRepo) *PlanHandler {
	return &PlanHandler{planRepo: planRepo, sessionRepo: sessionRepo}
}

type planCreateRequest struct {
	Title           string `json:"title"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"duration_minutes"`
}

type sessionCreateRequest struct {
	Title           string `json:"title"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"duration_minutes"`
}

func validatePlanInput(title, topic string, minutes int) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(topic) == "" {
		fields["topic"] = "Topic is required"
	}
	if minutes <= 0 {
		fields["duration_minutes"] = "Duration must be positive"
	}
	return fields
}

func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	plans, err := h.planRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list plans", r))
		return
	}

	writeJSON(w, http.StatusOK, plans)
}

// CreatePlan inserts a manual plan with one seed session scheduled now.
// Manual plans skip the weekly gate; only generated plans are limited to
// one per week.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := validatePlanInput(req.Title, req.Topic, req.DurationMinutes); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	plan := &models.StudyPlan{
		UserID:          userID,
		Title:           req.Title,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Status:          models.StatusPending,
	}
	if err := h.planRepo.Create(r.Context(), plan); err != nil {
		// The (user, week) unique index covers manual plans too.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "A plan already exists for this week", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create plan", r))
		return
	}

	now := time.Now().UTC()
	seed := &models.StudySession{
		PlanID:          &plan.ID,
		UserID:          userID,
		Title:           req.Title,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Status:          models.StatusPending,
		ScheduledAt:     &now,
	}
	if err := h.sessionRepo.Create(r.Context(), seed); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create seed session", r))
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

// AddSessionToCurrentPlan appends a session to this week's plan, bumps the
// plan total, and reopens the plan when it was already done.
func (h *PlanHandler) AddSessionToCurrentPlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := validatePlanInput(req.Title, req.Topic, req.DurationMinutes); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	weekStart, weekEnd := planner.WeekBounds(time.Now())
	plan, err := h.planRepo.GetInWindow(r.Context(), userID, weekStart, weekEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Current weekly plan not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load weekly plan", r))
		return
	}

	now := time.Now().UTC()
	session := &models.StudySession{
		PlanID:          &plan.ID,
		UserID:          userID,
		Title:           req.Title,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Status:          models.StatusPending,
		ScheduledAt:     &now,
	}
	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	if err := h.planRepo.AddDuration(r.Context(), plan.ID, req.DurationMinutes); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update plan duration", r))
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *PlanHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	week := r.URL.Query().Get("week")
	if week == "" {
		week = "current"
	}
	if week != "current" && week != "all" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "week must be 'current' or 'all'", r))
		return
	}

	var (
		sessions []models.StudySession
		err      error
	)
	if week == "current" {
		weekStart, weekEnd := planner.WeekBounds(time.Now())
		sessions, err = h.sessionRepo.ListByUserInWindow(r.Context(), userID, weekStart, weekEnd)
	} else {
		sessions, err = h.sessionRepo.ListByUser(r.Context(), userID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

type sessionUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateSessionStatus changes a session's status and re-derives the parent
// plan's status from the full sibling set.
func (h *PlanHandler) UpdateSessionStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req sessionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	switch req.Status {
	case models.StatusPending, models.StatusInProgress, models.StatusDone:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR",
			"status must be pending, in_progress, or done", r))
		return
	}

	session, err := h.sessionRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session", r))
		return
	}

	if err := h.sessionRepo.UpdateStatus(r.Context(), id, userID, req.Status); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update session", r))
		return
	}

	if session.PlanID != nil {
		statuses, err := h.sessionRepo.SiblingStatuses(r.Context(), *session.PlanID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load plan sessions", r))
			return
		}
		if len(statuses) > 0 {
			if err := h.planRepo.UpdateStatus(r.Context(), *session.PlanID, models.AggregatePlanStatus(statuses)); err != nil {
				writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update plan status", r))
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session updated"})
}
