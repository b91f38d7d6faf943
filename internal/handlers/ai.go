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
	"github.com/redis/go-redis/v9"

	"schediora-backend/internal/middleware"
	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
	"schediora-backend/internal/repository"
	"schediora-backend/internal/worker"
)

type AIHandler struct {
	jobRepo  *repository.JobRepo
	planRepo *repository.PlanRepo
	redis    *redis.Client
}

func NewAIHandler(jobRepo *repository.JobRepo, planRepo *repository.PlanRepo, redisClient *redis.Client) *AIHandler {
	return &AIHandler{jobRepo: jobRepo, planRepo: planRepo, redis: redisClient}
}

type generatePlanRequest struct {
	Goal  string `json:"goal"`
	Topic string `json:"topic"`
}

type jobResponse struct {
	JobID            uuid.UUID     `json:"job_id"`
	Status           string        `json:"status"`
	Result           *string       `json:"result,omitempty"`
	ResultStructured *planner.Plan `json:"result_structured,omitempty"`
}

// GeneratePlan gates submission on the caller's current week: one weekly
// plan means no new jobs until next Monday. Otherwise it records a queued
// job and pushes the work onto the Redis queue.
func (h *AIHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req generatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := make(map[string]string)
	if strings.TrimSpace(req.Goal) == "" {
		fields["goal"] = "Goal is required"
	}
	if strings.TrimSpace(req.Topic) == "" {
		fields["topic"] = "Topic is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	weekStart, weekEnd := planner.WeekBounds(time.Now())

	exists, err := h.planRepo.ExistsInWindow(r.Context(), userID, weekStart, weekEnd)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check weekly plan", r))
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT",
			"Weekly planner already set. You can generate a new AI plan next week.", r))
		return
	}

	job := &models.AiJob{
		UserID: userID,
		Goal:   req.Goal,
		Topic:  req.Topic,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	msg, _ := json.Marshal(models.GeneratePlanMessage{
		JobID: job.ID,
		Goal:  req.Goal,
		Topic: req.Topic,
	})
	if err := h.redis.LPush(r.Context(), worker.PlanQueue, string(msg)).Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse{JobID: job.ID, Status: job.Status})
}

func (h *AIHandler) WeeklyStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	weekStart, weekEnd := planner.WeekBounds(time.Now())

	hasGenerated, err := h.jobRepo.HasCompletedInWindow(r.Context(), userID, weekStart, weekEnd)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check weekly status", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"has_generated_this_week": hasGenerated})
}

// GetJob returns the job state for polling. The stored result_text is raw
// model output; a completed job is re-normalized on every read so the
// structured view always reflects the current normalization rules.
func (h *AIHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load job", r))
		return
	}

	resp := jobResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.ResultText,
	}

	if job.Status == models.JobCompleted {
		raw := ""
		if job.ResultText != nil {
			raw = *job.ResultText
		}
		structured := planner.Normalize(raw, job.Goal, job.Topic)
		resp.ResultStructured = &structured
	}

	writeJSON(w, http.StatusOK, resp)
}
