package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"schediora-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	query := `INSERT INTO study_sessions (plan_id, user_id, title, topic, duration_minutes, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		s.PlanID, s.UserID, s.Title, s.Topic, s.DurationMinutes, s.Status, s.ScheduledAt,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *SessionRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.StudySession, error) {
	s := &models.StudySession{}
	query := `SELECT id, plan_id, user_id, title, topic, duration_minutes, status, scheduled_at, completed_at, created_at
		FROM study_sessions WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&s.ID, &s.PlanID, &s.UserID, &s.Title, &s.Topic, &s.DurationMinutes,
		&s.Status, &s.ScheduledAt, &s.CompletedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudySession, error) {
	query := `SELECT id, plan_id, user_id, title, topic, duration_minutes, status, scheduled_at, completed_at, created_at
		FROM study_sessions WHERE user_id = $1 ORDER BY created_at ASC`

	return r.scanList(ctx, query, userID)
}

// ListByUserInWindow returns sessions created in [start, end).
func (r *SessionRepo) ListByUserInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]models.StudySession, error) {
	query := `SELECT id, plan_id, user_id, title, topic, duration_minutes, status, scheduled_at, completed_at, created_at
		FROM study_sessions
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC`

	return r.scanList(ctx, query, userID, start, end)
}

// UpdateStatus sets the session status; completed_at is set exactly when
// the session transitions to done and cleared otherwise.
func (r *SessionRepo) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status string) error {
	query := `UPDATE study_sessions
		SET status = $1,
			completed_at = CASE WHEN $1 = 'done' THEN NOW() ELSE NULL END
		WHERE id = $2 AND user_id = $3`

	_, err := r.pool.Exec(ctx, query, status, id, userID)
	return err
}

// SiblingStatuses returns the statuses of every session belonging to the
// plan. The caller re-derives the plan's aggregate status from the full set
// on every change; nothing is cached.
func (r *SessionRepo) SiblingStatuses(ctx context.Context, planID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT status FROM study_sessions WHERE plan_id = $1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *SessionRepo) scanList(ctx context.Context, query string, args ...interface{}) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.StudySession{}
	for rows.Next() {
		var s models.StudySession
		if err := rows.Scan(
			&s.ID, &s.PlanID, &s.UserID, &s.Title, &s.Topic, &s.DurationMinutes,
			&s.Status, &s.ScheduledAt, &s.CompletedAt, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
