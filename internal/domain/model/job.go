package model

import "time"

type JobType string

const (
	JobTypeNewChat      JobType = "new_chat"
	JobTypeContinueChat JobType = "continue_chat"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// CanTransitionTo enforces the monotonic job lifecycle:
// queued -> running -> completed|failed, no re-entry.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// Job is one asynchronous unit of work corresponding to one conversational
// turn. The registry row and the event log for a job expire together a fixed
// TTL after creation, whether or not anyone read the result.
type Job struct {
	ID          string     `json:"job_id"`
	ThreadID    string     `json:"thread_id"`
	UserID      string     `json:"user_id"`
	Input       string     `json:"message"`
	Type        JobType    `json:"job_type"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func NewJob(id, threadID, userID, input string, t JobType) *Job {
	return &Job{
		ID:        id,
		ThreadID:  threadID,
		UserID:    userID,
		Input:     input,
		Type:      t,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}
