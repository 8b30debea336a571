package repository

import (
	"context"

	"todo-maistro/internal/domain/model"
)

// ThreadRepository is the per-thread message history checkpoint. History
// accumulates across turns; an unknown thread id reads as an empty history
// (a continue-chat against it behaves like a fresh thread).
//
// Concurrent turns against one thread are not serialized here; callers that
// need strict ordering must not submit overlapping jobs for a thread.
type ThreadRepository interface {
	Append(ctx context.Context, threadID string, msgs []model.ChatMessage) error
	Messages(ctx context.Context, threadID string) ([]model.ChatMessage, error)
}
