package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"schediora-backend/internal/models"
)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) Create(ctx context.Context, p *models.StudyPlan) error {
	query := `INSERT INTO study_plans (user_id, title, topic, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		p.UserID, p.Title, p.Topic, p.DurationMinutes, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *PlanRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.StudyPlan, error) {
	query := `SELECT id, user_id, title, topic, duration_minutes, status, created_at
		FROM study_plans WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []models.StudyPlan{}
	for rows.Next() {
		var p models.StudyPlan
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Topic, &p.DurationMinutes, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// ExistsInWindow reports whether the user already has a plan whose
// created_at falls in [start, end). Used by the submission gate.
func (r *PlanRepo) ExistsInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(
		SELECT 1 FROM study_plans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	)`

	err := r.pool.QueryRow(ctx, query, userID, start, end).Scan(&exists)
	return exists, err
}

// GetInWindow returns the earliest plan created in [start, end).
func (r *PlanRepo) GetInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time) (*models.StudyPlan, error) {
	p := &models.StudyPlan{}
	query := `SELECT id, user_id, title, topic, duration_minutes, status, created_at
		FROM study_plans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC LIMIT 1`

	err := r.pool.QueryRow(ctx, query, userID, start, end).Scan(
		&p.ID, &p.UserID, &p.Title, &p.Topic, &p.DurationMinutes, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateWithSessions inserts the weekly plan and its sessions in one
// transaction. The in-transaction window check plus the unique
// (user_id, week) index make the call a silent no-op when a plan for this
// week already exists, so repeated materialization is safe. Returns whether
// a plan was actually created.
func (r *PlanRepo) CreateWithSessions(ctx context.Context, p *models.StudyPlan, sessions []models.StudySession, weekStart, weekEnd time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM study_plans
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3 LIMIT 1`,
		p.UserID, weekStart, weekEnd,
	).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	err = tx.QueryRow(ctx, `INSERT INTO study_plans (user_id, title, topic, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date_trunc('week', timezone('UTC', created_at))) DO NOTHING
		RETURNING id, created_at`,
		p.UserID, p.Title, p.Topic, p.DurationMinutes, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to a concurrent materialization; treat as no-op.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for i := range sessions {
		s := &sessions[i]
		s.PlanID = &p.ID
		err = tx.QueryRow(ctx, `INSERT INTO study_sessions
			(plan_id, user_id, title, topic, duration_minutes, status, scheduled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			s.PlanID, s.UserID, s.Title, s.Topic, s.DurationMinutes, s.Status, s.ScheduledAt,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PlanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE study_plans SET status = $1 WHERE id = $2`, status, id)
	return err
}

// AddDuration bumps the plan's total duration (floored at 30 minutes) and
// reopens a done plan when a fresh session is appended to it.
func (r *PlanRepo) AddDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	_, err := r.pool.Exec(ctx, `UPDATE study_plans
		SET duration_minutes = GREATEST(30, duration_minutes + $1),
			status = CASE WHEN status = 'done' THEN 'in_progress' ELSE status END
		WHERE id = $2`, minutes, id)
	return err
}
