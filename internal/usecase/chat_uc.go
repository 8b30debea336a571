package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
	"todo-maistro/internal/infra/metrics"
)

// ChatUseCase accepts conversational turns for asynchronous processing and
// reports their status. Submission is complete once the job is registered
// and enqueued; the turn itself runs on a worker.
type ChatUseCase struct {
	registry repository.JobRegistry
	queue    repository.JobQueue
}

func NewChatUseCase(registry repository.JobRegistry, queue repository.JobQueue) *ChatUseCase {
	return &ChatUseCase{registry: registry, queue: queue}
}

// NewChat opens a fresh thread and submits its first turn.
func (uc *ChatUseCase) NewChat(ctx context.Context, userID, input string) (*model.Job, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty message: %w", domain.ErrInvalidArgument)
	}
	if userID == "" {
		return nil, fmt.Errorf("missing user id: %w", domain.ErrInvalidArgument)
	}
	job := model.NewJob(newJobID(), uuid.NewString(), userID, input, model.JobTypeNewChat)
	return job, uc.submit(ctx, job)
}

// ContinueChat submits a turn against an existing thread. The thread id is
// taken as given; an id never seen before simply starts with empty history.
func (uc *ChatUseCase) ContinueChat(ctx context.Context, threadID, userID, input string) (*model.Job, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("empty message: %w", domain.ErrInvalidArgument)
	}
	if userID == "" {
		return nil, fmt.Errorf("missing user id: %w", domain.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(threadID); err != nil {
		return nil, fmt.Errorf("thread id %q: %w", threadID, domain.ErrInvalidArgument)
	}
	job := model.NewJob(newJobID(), threadID, userID, input, model.JobTypeContinueChat)
	return job, uc.submit(ctx, job)
}

func (uc *ChatUseCase) submit(ctx context.Context, job *model.Job) error {
	if err := uc.registry.Create(ctx, job); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	if err := uc.queue.Enqueue(ctx, job); err != nil {
		// The registry row will age out on its own; the job just never runs.
		return fmt.Errorf("enqueue job: %w", err)
	}
	metrics.IncJobSubmitted(string(job.Type))
	return nil
}

// JobStatus returns the registry view of a job. Expired and never-existed
// jobs both surface as domain.ErrNotFound.
func (uc *ChatUseCase) JobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	return uc.registry.Get(ctx, jobID)
}

func newJobID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
