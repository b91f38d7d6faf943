package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"schediora-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, j *models.AiJob) error {
	j.Status = models.JobQueued

	query := `INSERT INTO ai_jobs (user_id, goal, topic, status)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		j.UserID, j.Goal, j.Topic, j.Status,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

// GetByID is scoped to the owning user: a foreign job id behaves like a
// missing one.
func (r *JobRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.AiJob, error) {
	j := &models.AiJob{}
	query := `SELECT id, user_id, goal, topic, status, result_text, error, created_at, updated_at
		FROM ai_jobs WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&j.ID, &j.UserID, &j.Goal, &j.Topic, &j.Status,
		&j.ResultText, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Load fetches a job by id alone. Worker-side use only; HTTP handlers go
// through GetByID so ownership is always checked.
func (r *JobRepo) Load(ctx context.Context, id uuid.UUID) (*models.AiJob, error) {
	j := &models.AiJob{}
	query := `SELECT id, user_id, goal, topic, status, result_text, error, created_at, updated_at
		FROM ai_jobs WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.UserID, &j.Goal, &j.Topic, &j.Status,
		&j.ResultText, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.JobRunning, id,
	)
	return err
}

// MarkCompleted persists the raw generator output together with the
// terminal status. Safe to run twice: the overwrite is idempotent.
func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, resultText string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_jobs SET status = $1, result_text = $2, error = NULL, updated_at = NOW() WHERE id = $3`,
		models.JobCompleted, resultText, id,
	)
	return err
}

func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_jobs SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`,
		models.JobFailed, errMsg, id,
	)
	return err
}

// HasCompletedInWindow reports whether the user has a completed job created
// in [start, end). Backs the weekly-status endpoint.
func (r *JobRepo) HasCompletedInWindow(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(
		SELECT 1 FROM ai_jobs
		WHERE user_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	)`

	err := r.pool.QueryRow(ctx, query, userID, models.JobCompleted, start, end).Scan(&exists)
	return exists, err
}
