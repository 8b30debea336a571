package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

var _ repository.JobQueue = (*JobQueue)(nil)

// JobQueue is a Redis list; LPUSH plus BRPOP gives FIFO dispatch with each
// payload delivered to exactly one blocked consumer.
type JobQueue struct {
	client *Client
	name   string
}

func NewJobQueue(client *Client, name string) *JobQueue {
	return &JobQueue{client: client, name: name}
}

func (q *JobQueue) Enqueue(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.cli.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (q *JobQueue) Dequeue(ctx context.Context, block time.Duration) (*model.Job, error) {
	res, err := q.client.cli.BRPop(ctx, block, q.name).Result()
	if err == redisNil {
		return nil, nil // nothing arrived within the window
	}
	if err != nil {
		return nil, fmt.Errorf("brpop: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("brpop: unexpected reply of %d elements", len(res))
	}
	var job model.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &job, nil
}

func (q *JobQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.cli.LLen(ctx, q.name).Result()
}
