package web

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

type memRegistry struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	// expireAfter > 0 makes Exists report the job gone after that many
	// checks, simulating TTL expiry mid-stream.
	expireAfter  int
	existsChecks int
}

var _ repository.JobRegistry = (*memRegistry)(nil)

func newMemRegistry() *memRegistry { return &memRegistry{jobs: map[string]*model.Job{}} }

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
	if r.expireAfter > 0 {
		r.existsChecks++
		if r.existsChecks > r.expireAfter {
			return false, nil
		}
	}
	_, ok := r.jobs[jobID]
	return ok, nil
}

func (r *memRegistry) SetRunning(ctx context.Context, jobID string) error          { return nil }
func (r *memRegistry) SetCompleted(ctx context.Context, jobID, result string) error { return nil }
func (r *memRegistry) SetFailed(ctx context.Context, jobID, reason string) error    { return nil }

type memEventLog struct {
	mu     sync.Mutex
	seq    int
	events map[string][]model.StreamEvent
}

var _ repository.EventLog = (*memEventLog)(nil)

func newMemEventLog() *memEventLog { return &memEventLog{events: map[string][]model.StreamEvent{}} }

func (l *memEventLog) Append(ctx context.Context, jobID string, ev *model.StreamEvent) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ev.Seq = strconv.Itoa(l.seq)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
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

type memStore struct {
	mu   sync.Mutex
	docs map[repository.Namespace]map[string]json.RawMessage
}

var _ repository.MemoryStore = (*memStore)(nil)

func newMemStoreWeb() *memStore {
	return &memStore{docs: map[repository.Namespace]map[string]json.RawMessage{}}
}

func (s *memStore) Search(ctx context.Context, ns repository.Namespace) ([]repository.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.MemoryItem
	for k, v := range s.docs[ns] {
		out = append(out, repository.MemoryItem{Key: k, Value: v})
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, ns repository.Namespace, key string) (*repository.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.docs[ns][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &repository.MemoryItem{Key: key, Value: v}, nil
}

func (s *memStore) Put(ctx context.Context, ns repository.Namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[ns] == nil {
		s.docs[ns] = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.docs[ns][key] = raw
	return nil
}
