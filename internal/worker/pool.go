package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
)

// PlanQueue is the Redis list the submission handler pushes onto.
const PlanQueue = "queue:plan-generation"

// jobStore is the slice of JobRepo the pool drives the job state machine
// through.
type jobStore interface {
	Load(ctx context.Context, id uuid.UUID) (*models.AiJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, resultText string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

type planGenerator interface {
	GeneratePlan(ctx context.Context, goal, topic string) string
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type weeklyMaterializer interface {
	Materialize(ctx context.Context, userID uuid.UUID, topic string, structured planner.Plan) (bool, error)
}

type Pool struct {
	redis        *redis.Client
	generator    planGenerator
	materializer weeklyMaterializer
	jobRepo      jobStore
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	generator planGenerator,
	materializer weeklyMaterializer,
	jobRepo jobStore,
	workerCount int,
) *Pool {
	return &Pool{
		redis:        redisClient,
		generator:    generator,
		materializer: materializer,
		jobRepo:      jobRepo,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, PlanQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var msg models.GeneratePlanMessage
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			log.Printf("Worker %d: failed to parse queue message: %v", id, err)
			continue
		}

		// Try to acquire lock. Delivery is at-least-once; the lock keeps a
		// redelivered message from running concurrently with the first.
		lockKey := fmt.Sprintf("job_lock:%s", msg.JobID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		p.processJob(ctx, id, msg)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processJob(ctx context.Context, workerID int, msg models.GeneratePlanMessage) {
	job, err := p.jobRepo.Load(ctx, msg.JobID)
	if err != nil {
		log.Printf("Worker %d: job %s not found, dropping: %v", workerID, msg.JobID, err)
		return
	}

	// A redelivered message for an already-finished job is a no-op.
	if job.Status == models.JobCompleted || job.Status == models.JobFailed {
		log.Printf("Worker %d: job %s already %s, skipping", workerID, job.ID, job.Status)
		return
	}

	log.Printf("Worker %d: processing job %s", workerID, job.ID)

	if err := p.jobRepo.MarkRunning(ctx, job.ID); err != nil {
		p.fail(ctx, job, fmt.Errorf("failed to mark job running: %w", err))
		return
	}

	p.generator.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.JobStatusUpdate{
			JobID:  job.ID,
			Status: models.JobRunning,
		},
	})

	// The generator never errors; the worst case is the fallback sentinel,
	// which still normalizes into a one-step plan.
	rawText := p.generator.GeneratePlan(ctx, msg.Goal, msg.Topic)

	structured := planner.Normalize(rawText, msg.Goal, msg.Topic)

	// A weekly no-op (plan already exists) is success, not failure.
	if _, err := p.materializer.Materialize(ctx, job.UserID, msg.Topic, structured); err != nil {
		p.fail(ctx, job, fmt.Errorf("failed to materialize weekly plan: %w", err))
		return
	}

	if err := p.jobRepo.MarkCompleted(ctx, job.ID, rawText); err != nil {
		p.fail(ctx, job, fmt.Errorf("failed to mark job completed: %w", err))
		return
	}

	p.generator.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type:    "completed",
		Payload: models.JobCompletedEvent{JobID: job.ID},
	})

	log.Printf("Worker %d: job %s completed", workerID, job.ID)
}

func (p *Pool) fail(ctx context.Context, job *models.AiJob, err error) {
	errMsg := err.Error()
	log.Printf("Job %s failed: %s", job.ID, errMsg)

	if markErr := p.jobRepo.MarkFailed(ctx, job.ID, errMsg); markErr != nil {
		log.Printf("Job %s: failed to record failure: %v", job.ID, markErr)
	}

	p.generator.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.JobErrorEvent{
			JobID:        job.ID,
			ErrorMessage: errMsg,
		},
	})
}
