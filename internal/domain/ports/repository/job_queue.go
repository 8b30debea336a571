package repository

import (
	"context"
	"time"

	"todo-maistro/internal/domain/model"
)

// JobQueue hands each submitted job to exactly one dequeuer. Dequeue blocks
// up to the given timeout and returns (nil, nil) when nothing arrived.
type JobQueue interface {
	Enqueue(ctx context.Context, job *model.Job) error
	Dequeue(ctx context.Context, block time.Duration) (*model.Job, error)
	Depth(ctx context.Context) (int64, error)
}

// DispatchLocker guards against a job being processed twice, for example
// when a submission retry re-enqueues an id that is already running. TryLock
// returns domain.ErrAlreadyDispatched when the lock is held elsewhere.
type DispatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
