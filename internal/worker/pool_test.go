package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"schediora-backend/internal/models"
	"schediora-backend/internal/planner"
)

type fakeJobStore struct {
	jobs        map[uuid.UUID]*models.AiJob
	transitions []string
}

func newFakeJobStore(jobs ...*models.AiJob) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[uuid.UUID]*models.AiJob)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeJobStore) Load(ctx context.Context, id uuid.UUID) (*models.AiJob, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	copied := *j
	return &copied, nil
}

func (s *fakeJobStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	s.jobs[id].Status = models.JobRunning
	s.transitions = append(s.transitions, models.JobRunning)
	return nil
}

func (s *fakeJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, resultText string) error {
	j := s.jobs[id]
	j.Status = models.JobCompleted
	j.ResultText = &resultText
	j.Error = nil
	s.transitions = append(s.transitions, models.JobCompleted)
	return nil
}

func (s *fakeJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	j := s.jobs[id]
	j.Status = models.JobFailed
	j.Error = &errMsg
	s.transitions = append(s.transitions, models.JobFailed)
	return nil
}

type fakeGenerator struct {
	rawText   string
	published []models.WSMessage
}

func (g *fakeGenerator) GeneratePlan(ctx context.Context, goal, topic string) string {
	return g.rawText
}

func (g *fakeGenerator) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	g.published = append(g.published, msg)
}

type fakeMaterializer struct {
	created bool
	err     error
	calls   int
}

func (m *fakeMaterializer) Materialize(ctx context.Context, userID uuid.UUID, topic string, structured planner.Plan) (bool, error) {
	m.calls++
	return m.created, m.err
}

func queuedJob() *models.AiJob {
	return &models.AiJob{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Goal:   "Pass the final",
		Topic:  "Algebra",
		Status: models.JobQueued,
	}
}

func eventTypes(msgs []models.WSMessage) []string {
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	return types
}

func TestProcessJob_SuccessPath(t *testing.T) {
	job := queuedJob()
	store := newFakeJobStore(job)
	gen := &fakeGenerator{rawText: `{"title":"T","summary":"S","steps":[{"title":"Review"}]}`}
	mat := &fakeMaterializer{created: true}
	p := &Pool{generator: gen, materializer: mat, jobRepo: store}

	p.processJob(context.Background(), 0, models.GeneratePlanMessage{
		JobID: job.ID, Goal: job.Goal, Topic: job.Topic,
	})

	if job.Status != models.JobCompleted {
		t.Errorf("Expected completed, got %q", job.Status)
	}
	if job.ResultText == nil || *job.ResultText != gen.rawText {
		t.Errorf("Expected raw generator output persisted, got %v", job.ResultText)
	}
	if mat.calls != 1 {
		t.Errorf("Expected 1 materializer call, got %d", mat.calls)
	}

	wantTransitions := []string{models.JobRunning, models.JobCompleted}
	if len(store.transitions) != 2 || store.transitions[0] != wantTransitions[0] || store.transitions[1] != wantTransitions[1] {
		t.Errorf("Expected transitions %v, got %v", wantTransitions, store.transitions)
	}

	types := eventTypes(gen.published)
	if len(types) != 2 || types[0] != "status_update" || types[1] != "completed" {
		t.Errorf("Expected [status_update completed] events, got %v", types)
	}
}

func TestProcessJob_WeeklyNoOpStillCompletes(t *testing.T) {
	job := queuedJob()
	store := newFakeJobStore(job)
	gen := &fakeGenerator{rawText: "- [ ] Review notes"}
	mat := &fakeMaterializer{created: false}
	p := &Pool{generator: gen, materializer: mat, jobRepo: store}

	p.processJob(context.Background(), 0, models.GeneratePlanMessage{
		JobID: job.ID, Goal: job.Goal, Topic: job.Topic,
	})

	if job.Status != models.JobCompleted {
		t.Errorf("Expected no-op materialization to still complete the job, got %q", job.Status)
	}
	if job.Error != nil {
		t.Errorf("Expected no error recorded, got %q", *job.Error)
	}
}

func TestProcessJob_MaterializerFailureMarksFailed(t *testing.T) {
	job := queuedJob()
	store := newFakeJobStore(job)
	gen := &fakeGenerator{rawText: "anything"}
	mat := &fakeMaterializer{err: errors.New("insert study_plans: connection refused")}
	p := &Pool{generator: gen, materializer: mat, jobRepo: store}

	p.processJob(context.Background(), 0, models.GeneratePlanMessage{
		JobID: job.ID, Goal: job.Goal, Topic: job.Topic,
	})

	if job.Status != models.JobFailed {
		t.Fatalf("Expected failed, got %q", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "connection refused") {
		t.Errorf("Expected error message persisted on the job, got %v", job.Error)
	}

	wantTransitions := []string{models.JobRunning, models.JobFailed}
	if len(store.transitions) != 2 || store.transitions[1] != models.JobFailed {
		t.Errorf("Expected transitions %v, got %v", wantTransitions, store.transitions)
	}

	types := eventTypes(gen.published)
	if len(types) != 2 || types[1] != "error" {
		t.Errorf("Expected final error event, got %v", types)
	}
}

func TestProcessJob_TerminalJobIsNotReprocessed(t *testing.T) {
	for _, status := range []string{models.JobCompleted, models.JobFailed} {
		t.Run(status, func(t *testing.T) {
			job := queuedJob()
			job.Status = status
			store := newFakeJobStore(job)
			gen := &fakeGenerator{rawText: "anything"}
			mat := &fakeMaterializer{created: true}
			p := &Pool{generator: gen, materializer: mat, jobRepo: store}

			p.processJob(context.Background(), 0, models.GeneratePlanMessage{
				JobID: job.ID, Goal: job.Goal, Topic: job.Topic,
			})

			if job.Status != status {
				t.Errorf("Expected status to stay %q, got %q", status, job.Status)
			}
			if mat.calls != 0 {
				t.Errorf("Expected no materializer call for redelivered terminal job, got %d", mat.calls)
			}
			if len(store.transitions) != 0 {
				t.Errorf("Expected no transitions, got %v", store.transitions)
			}
			if len(gen.published) != 0 {
				t.Errorf("Expected no events, got %v", eventTypes(gen.published))
			}
		})
	}
}

func TestProcessJob_UnknownJobIsDropped(t *testing.T) {
	store := newFakeJobStore()
	gen := &fakeGenerator{rawText: "anything"}
	mat := &fakeMaterializer{created: true}
	p := &Pool{generator: gen, materializer: mat, jobRepo: store}

	p.processJob(context.Background(), 0, models.GeneratePlanMessage{
		JobID: uuid.New(), Goal: "g", Topic: "t",
	})

	if mat.calls != 0 || len(gen.published) != 0 {
		t.Error("Expected a message for an unknown job to be dropped without side effects")
	}
}
