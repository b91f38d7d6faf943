package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"schediora-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (email, password_hash)
		VALUES ($1, $2) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpsertPreferences stores the onboarding preferences, replacing any
// previous row for the user.
func (r *UserRepo) UpsertPreferences(ctx context.Context, p *models.OnboardingPreference) error {
	if len(p.FocusTopics) == 0 {
		p.FocusTopics = json.RawMessage("[]")
	}

	query := `INSERT INTO onboarding_preferences (user_id, goal, daily_hours, focus_topics, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET goal = EXCLUDED.goal,
			daily_hours = EXCLUDED.daily_hours,
			focus_topics = EXCLUDED.focus_topics,
			updated_at = NOW()
		RETURNING updated_at`

	return r.pool.QueryRow(ctx, query, p.UserID, p.Goal, p.DailyHours, p.FocusTopics).Scan(&p.UpdatedAt)
}

func (r *UserRepo) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.OnboardingPreference, error) {
	p := &models.OnboardingPreference{}
	query := `SELECT user_id, goal, daily_hours, focus_topics, updated_at
		FROM onboarding_preferences WHERE user_id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Goal, &p.DailyHours, &p.FocusTopics, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
