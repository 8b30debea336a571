package repository

import (
	"context"

	"todo-maistro/internal/domain/model"
)

// JobRegistry holds per-job metadata with a TTL counted from creation.
// Status mutations must respect model.JobStatus.CanTransitionTo; a job whose
// registry entry has expired is indistinguishable from one that never
// existed (domain.ErrNotFound).
type JobRegistry interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Exists(ctx context.Context, jobID string) (bool, error)

	SetRunning(ctx context.Context, jobID string) error
	SetCompleted(ctx context.Context, jobID, result string) error
	SetFailed(ctx context.Context, jobID, reason string) error
}
