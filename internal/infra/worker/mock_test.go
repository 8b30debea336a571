package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"todo-maistro/internal/agent"
	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

type memRegistry struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

var _ repository.JobRegistry = (*memRegistry)(nil)

func newMemRegistry() *memRegistry {
	return &memRegistry{jobs: map[string]*model.Job{}}
}

func (r *memRegistry) Create(ctx context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memRegistry) Get(ctx context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *memRegistry) Exists(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobID]
	return ok, nil
}

func (r *memRegistry) transition(ctx context.Context, jobID string, next model.JobStatus) (*model.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !job.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s -> %s: %w", job.Status, next, domain.ErrInvalidTransition)
	}
	job.Status = next
	return job, nil
}

func (r *memRegistry) SetRunning(ctx context.Context, jobID string) error {
	_, err := r.transition(ctx, jobID, model.JobStatusRunning)
	return err
}

func (r *memRegistry) SetCompleted(ctx context.Context, jobID, result string) error {
	job, err := r.transition(ctx, jobID, model.JobStatusCompleted)
	if err != nil {
		return err
	}
	job.Result = result
	return nil
}

func (r *memRegistry) SetFailed(ctx context.Context, jobID, reason string) error {
	job, err := r.transition(ctx, jobID, model.JobStatusFailed)
	if err != nil {
		return err
	}
	job.Error = reason
	return nil
}

type memEventLog struct {
	mu     sync.Mutex
	seq    int
	events map[string][]model.StreamEvent
}

var _ repository.EventLog = (*memEventLog)(nil)

func newMemEventLog() *memEventLog {
	return &memEventLog{events: map[string][]model.StreamEvent{}}
}

func (l *memEventLog) Append(ctx context.Context, jobID string, ev *model.StreamEvent) (string, error) {
	// The real log refuses work once its context is done.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ev.Seq = strconv.Itoa(l.seq)
	l.events[jobID] = append(l.events[jobID], *ev)
	return ev.Seq, nil
}

func (l *memEventLog) Read(ctx context.Context, jobID, fromSeq string, count int64, block time.Duration) ([]model.StreamEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	from, _ := strconv.Atoi(fromSeq)
	var out []model.StreamEvent
	for _, ev := range l.events[jobID] {
		n, _ := strconv.Atoi(ev.Seq)
		if n > from {
			out = append(out, ev)
		}
		if int64(len(out)) == count {
			break
		}
	}
	return out, nil
}

func (l *memEventLog) all(jobID string) []model.StreamEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.StreamEvent(nil), l.events[jobID]...)
}

type memLocker struct {
	mu    sync.Mutex
	locks map[string]string
}

var _ repository.DispatchLocker = (*memLocker)(nil)

func newMemLocker() *memLocker {
	return &memLocker{locks: map[string]string{}}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locks[key]; held {
		return "", domain.ErrAlreadyDispatched
	}
	token := fmt.Sprintf("tok-%d", len(l.locks)+1)
	l.locks[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] == token {
		delete(l.locks, key)
	}
	return nil
}

type memQueue struct {
	mu   sync.Mutex
	jobs []*model.Job
}

var _ repository.JobQueue = (*memQueue)(nil)

func (q *memQueue) Enqueue(ctx context.Context, job *model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, block time.Duration) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *memQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

// scriptedRunner replays fragments through emit and returns a fixed result.
// With stall set it blocks until the context expires, like a turn that
// outlives its budget.
type scriptedRunner struct {
	frags  []agent.Fragment
	result *agent.TurnResult
	err    error
	stall  bool
}

func (r *scriptedRunner) RunTurn(ctx context.Context, req agent.TurnRequest, emit func(agent.Fragment)) (*agent.TurnResult, error) {
	for _, f := range r.frags {
		emit(f)
	}
	if r.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}
