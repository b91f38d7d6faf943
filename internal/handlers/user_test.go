package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"schediora-backend/internal/middleware"
	"schediora-backend/internal/models"
)

type fakeUserStore struct {
	user  *models.User
	prefs *models.OnboardingPreference
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeUserStore) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.OnboardingPreference, error) {
	if f.prefs == nil {
		return nil, pgx.ErrNoRows
	}
	return f.prefs, nil
}

func (f *fakeUserStore) UpsertPreferences(ctx context.Context, p *models.OnboardingPreference) error {
	f.prefs = p
	return nil
}

func authedRequest(method, target string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestMe_IncludesPreferences(t *testing.T) {
	userID := uuid.New()
	store := &fakeUserStore{
		user: &models.User{ID: userID, Email: "user@example.com", CreatedAt: time.Now()},
		prefs: &models.OnboardingPreference{
			UserID:      userID,
			Goal:        "Pass the final",
			DailyHours:  2,
			FocusTopics: json.RawMessage(`["Algebra"]`),
		},
	}
	h := NewUserHandler(store)

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/v1/users/me", userID))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Email       string `json:"email"`
		Preferences *struct {
			Goal       string `json:"goal"`
			DailyHours int    `json:"daily_hours"`
		} `json:"preferences"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Email != "user@example.com" {
		t.Errorf("Expected email in response, got %q", resp.Email)
	}
	if resp.Preferences == nil {
		t.Fatal("Expected preferences in response")
	}
	if resp.Preferences.Goal != "Pass the final" || resp.Preferences.DailyHours != 2 {
		t.Errorf("Unexpected preferences: %+v", resp.Preferences)
	}
}

func TestMe_NullPreferencesBeforeOnboarding(t *testing.T) {
	userID := uuid.New()
	store := &fakeUserStore{
		user: &models.User{ID: userID, Email: "new@example.com", CreatedAt: time.Now()},
	}
	h := NewUserHandler(store)

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/v1/users/me", userID))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if string(resp["preferences"]) != "null" {
		t.Errorf("Expected null preferences, got %s", resp["preferences"])
	}
}

func TestMe_UnknownUser(t *testing.T) {
	h := NewUserHandler(&fakeUserStore{})

	rec := httptest.NewRecorder()
	h.Me(rec, authedRequest(http.MethodGet, "/api/v1/users/me", uuid.New()))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
