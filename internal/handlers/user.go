package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"schediora-backend/internal/middleware"
	"schediora-backend/internal/models"
)

// userStore is the slice of UserRepo the user endpoints need.
type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*models.OnboardingPreference, error)
	UpsertPreferences(ctx context.Context, p *models.OnboardingPreference) error
}

type UserHandler struct {
	userRepo userStore
}

func NewUserHandler(userRepo userStore) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

type meResponse struct {
	ID          uuid.UUID                    `json:"id"`
	Email       string                       `json:"email"`
	CreatedAt   time.Time                    `json:"created_at"`
	Preferences *models.OnboardingPreference `json:"preferences"`
}

// Me returns the caller's profile with onboarding preferences attached, or
// a null preferences field before onboarding.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	resp := meResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}

	prefs, err := h.userRepo.GetPreferences(r.Context(), userID)
	if err == nil {
		resp.Preferences = prefs
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load preferences", r))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type preferencesRequest struct {
	Goal        string          `json:"goal"`
	DailyHours  int             `json:"daily_hours"`
	FocusTopics json.RawMessage `json:"focus_topics"`
}

func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := make(map[string]string)
	if strings.TrimSpace(req.Goal) == "" {
		fields["goal"] = "Goal is required"
	}
	if req.DailyHours < 1 || req.DailyHours > 24 {
		fields["daily_hours"] = "Daily hours must be between 1 and 24"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	prefs := &models.OnboardingPreference{
		UserID:      userID,
		Goal:        req.Goal,
		DailyHours:  req.DailyHours,
		FocusTopics: req.FocusTopics,
	}
	if err := h.userRepo.UpsertPreferences(r.Context(), prefs); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save preferences", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "preferences updated"})
}
