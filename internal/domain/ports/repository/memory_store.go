package repository

import (
	"context"
	"encoding/json"

	"todo-maistro/internal/domain/model"
)

// Namespace partitions the long-term memory store by record kind and user.
type Namespace struct {
	Kind   model.MemoryKind
	UserID string
}

// MemoryItem is one stored document. Key is the user id for singleton kinds
// (profile, instructions) and a per-document id for todos. Value is the
// JSON encoding of the typed record for the namespace's kind.
type MemoryItem struct {
	Key   string
	Value json.RawMessage
}

// MemoryStore is the namespaced key-value store behind the agent's
// long-term memory. Put accepts the typed record for the namespace's kind
// (*model.Profile, *model.Todo, *model.Instructions) and merges it into any
// existing document under the same key field by field; records are never
// deleted here. Get returns domain.ErrNotFound when the key is absent.
type MemoryStore interface {
	Search(ctx context.Context, ns Namespace) ([]MemoryItem, error)
	Get(ctx context.Context, ns Namespace, key string) (*MemoryItem, error)
	Put(ctx context.Context, ns Namespace, key string, value any) error
}
