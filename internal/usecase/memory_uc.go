package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

// MemoryUseCase exposes read access to a user's long-term memory.
type MemoryUseCase struct {
	store repository.MemoryStore
}

func NewMemoryUseCase(store repository.MemoryStore) *MemoryUseCase {
	return &MemoryUseCase{store: store}
}

// ListTodos returns the user's task list, empty when none exist.
func (uc *MemoryUseCase) ListTodos(ctx context.Context, userID string) ([]model.Todo, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id: %w", domain.ErrInvalidArgument)
	}
	items, err := uc.store.Search(ctx, repository.Namespace{Kind: model.MemoryKindTodo, UserID: userID})
	if err != nil {
		return nil, err
	}
	todos := make([]model.Todo, 0, len(items))
	for _, it := range items {
		var t model.Todo
		if err := json.Unmarshal(it.Value, &t); err != nil {
			return nil, fmt.Errorf("decode todo %s: %w", it.Key, err)
		}
		t.ID = it.Key
		todos = append(todos, t)
	}
	return todos, nil
}

// GetProfile returns the user's profile, or ErrNotFound when the agent has
// not built one yet.
func (uc *MemoryUseCase) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user id: %w", domain.ErrInvalidArgument)
	}
	item, err := uc.store.Get(ctx, repository.Namespace{Kind: model.MemoryKindProfile, UserID: userID}, userID)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	if err := json.Unmarshal(item.Value, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
