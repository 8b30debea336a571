package redis

import (
	"context"
	"fmt"
	"time"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

var _ repository.JobRegistry = (*JobRegistry)(nil)

// JobRegistry keeps one hash per job under job:{id}:meta. The TTL is set
// once at creation and deliberately not refreshed on status updates, so a
// job's metadata expires a fixed interval after submission regardless of
// when (or whether) it finished.
type JobRegistry struct {
	client *Client
	ttl    time.Duration
}

func NewJobRegistry(client *Client, ttl time.Duration) *JobRegistry {
	return &JobRegistry{client: client, ttl: ttl}
}

func metaKey(jobID string) string { return fmt.Sprintf("job:%s:meta", jobID) }

func (r *JobRegistry) Create(ctx context.Context, job *model.Job) error {
	key := metaKey(job.ID)
	fields := map[string]interface{}{
		"user_id":    job.UserID,
		"thread_id":  job.ThreadID,
		"input":      job.Input,
		"job_type":   string(job.Type),
		"status":     string(job.Status),
		"created_at": job.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := r.client.cli.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("registry create: %w", err)
	}
	return r.client.cli.Expire(ctx, key, r.ttl).Err()
}

func (r *JobRegistry) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m, err := r.client.cli.HGetAll(ctx, metaKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("registry get: %w", err)
	}
	if len(m) == 0 {
		return nil, domain.ErrNotFound
	}
	job := &model.Job{
		ID:       jobID,
		UserID:   m["user_id"],
		ThreadID: m["thread_id"],
		Input:    m["input"],
		Type:     model.JobType(m["job_type"]),
		Status:   model.JobStatus(m["status"]),
		Result:   m["result"],
		Error:    m["error"],
	}
	if t, err := time.Parse(time.RFC3339Nano, m["created_at"]); err == nil {
		job.CreatedAt = t
	}
	if v := m["completed_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			job.CompletedAt = &t
		}
	}
	if v := m["failed_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			job.FailedAt = &t
		}
	}
	return job, nil
}

func (r *JobRegistry) Exists(ctx context.Context, jobID string) (bool, error) {
	n, err := r.client.cli.Exists(ctx, metaKey(jobID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *JobRegistry) SetRunning(ctx context.Context, jobID string) error {
	return r.transition(ctx, jobID, model.JobStatusRunning, nil)
}

func (r *JobRegistry) SetCompleted(ctx context.Context, jobID, result string) error {
	return r.transition(ctx, jobID, model.JobStatusCompleted, map[string]interface{}{
		"result":       result,
		"completed_at": time.Now().Format(time.RFC3339Nano),
	})
}

func (r *JobRegistry) SetFailed(ctx context.Context, jobID, reason string) error {
	return r.transition(ctx, jobID, model.JobStatusFailed, map[string]interface{}{
		"error":     reason,
		"failed_at": time.Now().Format(time.RFC3339Nano),
	})
}

// transition validates the monotonic lifecycle against the stored status
// before writing. An expired entry surfaces as ErrNotFound rather than
// being silently recreated without a TTL.
func (r *JobRegistry) transition(ctx context.Context, jobID string, next model.JobStatus, extra map[string]interface{}) error {
	key := metaKey(jobID)
	cur, err := r.client.cli.HGet(ctx, key, "status").Result()
	if err == redisNil {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("registry status read: %w", err)
	}
	if !model.JobStatus(cur).CanTransitionTo(next) {
		return fmt.Errorf("%s -> %s: %w", cur, next, domain.ErrInvalidTransition)
	}
	fields := map[string]interface{}{"status": string(next)}
	for k, v := range extra {
		fields[k] = v
	}
	if err := r.client.cli.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("registry transition: %w", err)
	}
	return nil
}
