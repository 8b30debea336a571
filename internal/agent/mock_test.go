package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/adapter"
	"todo-maistro/internal/domain/ports/repository"
)

// scriptStep is one scripted model response, consumed in order across both
// Invoke and StreamInvoke.
type scriptStep struct {
	frags []adapter.Fragment
	res   *adapter.InvokeResult
	err   error
}

type fakeModel struct {
	mu    sync.Mutex
	steps []scriptStep
	calls []adapter.InvokeRequest
}

var _ adapter.ModelAdapter = (*fakeModel)(nil)

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) next(req adapter.InvokeRequest) (scriptStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.steps) == 0 {
		return scriptStep{}, fmt.Errorf("fake model: no scripted step for call %d", len(f.calls))
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step, nil
}

func (f *fakeModel) Invoke(ctx context.Context, req adapter.InvokeRequest) (*adapter.InvokeResult, error) {
	step, err := f.next(req)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	if step.res == nil {
		return nil, fmt.Errorf("fake model: step has no invoke result")
	}
	return step.res, nil
}

func (f *fakeModel) StreamInvoke(ctx context.Context, req adapter.InvokeRequest) (<-chan adapter.Fragment, error) {
	step, err := f.next(req)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	ch := make(chan adapter.Fragment, len(step.frags))
	for _, fr := range step.frags {
		ch <- fr
	}
	close(ch)
	return ch, nil
}

func (f *fakeModel) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(m.Content) / 4
	}
	return n, nil
}

func toolCall(id, name string, args any) adapter.ToolCall {
	raw, _ := json.Marshal(args)
	return adapter.ToolCall{ID: id, Name: name, Args: raw}
}

// memStore mirrors the merge semantics of the persistent store: profile and
// todo writes overlay existing documents, instructions overwrite.
type memStore struct {
	mu   sync.Mutex
	docs map[repository.Namespace]map[string]json.RawMessage
}

var _ repository.MemoryStore = (*memStore)(nil)

func newMemStore() *memStore {
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

	switch v := value.(type) {
	case *model.Profile:
		merged := *v
		if raw, ok := s.docs[ns][key]; ok {
			var existing model.Profile
			if err := json.Unmarshal(raw, &existing); err == nil {
				merged = model.MergeProfile(existing, *v)
			}
		}
		raw, _ := json.Marshal(merged)
		s.docs[ns][key] = raw
	case *model.Todo:
		merged := *v
		if raw, ok := s.docs[ns][key]; ok {
			var existing model.Todo
			if err := json.Unmarshal(raw, &existing); err == nil {
				merged = model.MergeTodo(existing, *v)
			}
		}
		merged.ID = key
		raw, _ := json.Marshal(merged)
		s.docs[ns][key] = raw
	case *model.Instructions:
		raw, _ := json.Marshal(v)
		s.docs[ns][key] = raw
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}
	return nil
}

type memThreads struct {
	mu      sync.Mutex
	history map[string][]model.ChatMessage
}

var _ repository.ThreadRepository = (*memThreads)(nil)

func newMemThreads() *memThreads {
	return &memThreads{history: map[string][]model.ChatMessage{}}
}

func (r *memThreads) Append(ctx context.Context, threadID string, msgs []model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[threadID] = append(r.history[threadID], msgs...)
	return nil
}

func (r *memThreads) Messages(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.history[threadID]...), nil
}
