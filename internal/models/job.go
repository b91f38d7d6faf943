package models

import (
	"time"

	"github.com/google/uuid"
)

// AI job lifecycle. Completed and failed are terminal.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type AiJob struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Goal       string    `json:"goal"`
	Topic      string    `json:"topic"`
	Status     string    `json:"status"`
	ResultText *string   `json:"result_text"`
	Error      *string   `json:"error"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GeneratePlanMessage is the payload pushed onto the Redis queue by the
// submission handler and consumed by the worker pool.
type GeneratePlanMessage struct {
	JobID uuid.UUID `json:"job_id"`
	Goal  string    `json:"goal"`
	Topic string    `json:"topic"`
}

// UserUpdatesChannel names the Redis pub/sub channel carrying one user's
// job lifecycle events. Publisher (worker) and subscriber (ws hub) agree
// through this single definition.
func UserUpdatesChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type JobStatusUpdate struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

type JobCompletedEvent struct {
	JobID uuid.UUID `json:"job_id"`
}

type JobErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
