// File: internal/infra/db/postgres/memory_store.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
)

var _ repository.MemoryStore = (*MemoryStore)(nil)

// MemoryStore persists long-term memory in three tables, one per record
// kind. Writes merge field by field through the typed merge functions in
// the model package; nothing here deletes records.
type MemoryStore struct {
	pool *pgxpool.Pool
}

func NewMemoryStore(pool *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{pool: pool}
}

func (s *MemoryStore) Search(ctx context.Context, ns repository.Namespace) ([]repository.MemoryItem, error) {
	switch ns.Kind {
	case model.MemoryKindProfile:
		p, err := s.profile(ctx, ns.UserID)
		if err != nil {
			if err == domain.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		return []repository.MemoryItem{marshalItem(ns.UserID, p)}, nil
	case model.MemoryKindTodo:
		todos, err := s.todos(ctx, ns.UserID)
		if err != nil {
			return nil, err
		}
		items := make([]repository.MemoryItem, 0, len(todos))
		for _, t := range todos {
			items = append(items, marshalItem(t.ID, t))
		}
		return items, nil
	case model.MemoryKindInstructions:
		ins, err := s.instructions(ctx, ns.UserID)
		if err != nil {
			if err == domain.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		return []repository.MemoryItem{marshalItem(ns.UserID, ins)}, nil
	}
	return nil, fmt.Errorf("kind %q: %w", ns.Kind, domain.ErrInvalidArgument)
}

func (s *MemoryStore) Get(ctx context.Context, ns repository.Namespace, key string) (*repository.MemoryItem, error) {
	switch ns.Kind {
	case model.MemoryKindProfile:
		p, err := s.profile(ctx, ns.UserID)
		if err != nil {
			return nil, err
		}
		item := marshalItem(ns.UserID, p)
		return &item, nil
	case model.MemoryKindTodo:
		t, err := s.todo(ctx, key)
		if err != nil {
			return nil, err
		}
		item := marshalItem(t.ID, t)
		return &item, nil
	case model.MemoryKindInstructions:
		ins, err := s.instructions(ctx, ns.UserID)
		if err != nil {
			return nil, err
		}
		item := marshalItem(ns.UserID, ins)
		return &item, nil
	}
	return nil, fmt.Errorf("kind %q: %w", ns.Kind, domain.ErrInvalidArgument)
}

func (s *MemoryStore) Put(ctx context.Context, ns repository.Namespace, key string, value any) error {
	switch v := value.(type) {
	case *model.Profile:
		if ns.Kind != model.MemoryKindProfile {
			return domain.ErrInvalidArgument
		}
		return s.putProfile(ctx, ns.UserID, v)
	case *model.Todo:
		if ns.Kind != model.MemoryKindTodo {
			return domain.ErrInvalidArgument
		}
		return s.putTodo(ctx, ns.UserID, key, v)
	case *model.Instructions:
		if ns.Kind != model.MemoryKindInstructions {
			return domain.ErrInvalidArgument
		}
		return s.putInstructions(ctx, ns.UserID, v)
	}
	return fmt.Errorf("put %T: %w", value, domain.ErrInvalidArgument)
}

// --- profiles ---

func (s *MemoryStore) profile(ctx context.Context, userID string) (*model.Profile, error) {
	const q = `SELECT name, location, job, connections, interests FROM profiles WHERE user_id = $1;`
	var (
		p                      model.Profile
		name, location, pjob   sql.NullString
		connections, interests []byte
	)
	err := s.pool.QueryRow(ctx, q, userID).Scan(&name, &location, &pjob, &connections, &interests)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile read: %w", err)
	}
	p.Name, p.Location, p.Job = name.String, location.String, pjob.String
	if len(connections) > 0 {
		_ = json.Unmarshal(connections, &p.Connections)
	}
	if len(interests) > 0 {
		_ = json.Unmarshal(interests, &p.Interests)
	}
	return &p, nil
}

func (s *MemoryStore) putProfile(ctx context.Context, userID string, update *model.Profile) error {
	merged := *update
	if existing, err := s.profile(ctx, userID); err == nil {
		merged = model.MergeProfile(*existing, *update)
	} else if err != domain.ErrNotFound {
		return err
	}

	connections, _ := json.Marshal(merged.Connections)
	interests, _ := json.Marshal(merged.Interests)
	const q = `
INSERT INTO profiles (user_id, name, location, job, connections, interests, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (user_id) DO UPDATE SET
  name = EXCLUDED.name,
  location = EXCLUDED.location,
  job = EXCLUDED.job,
  connections = EXCLUDED.connections,
  interests = EXCLUDED.interests,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, q, userID, merged.Name, merged.Location, merged.Job, connections, interests); err != nil {
		return fmt.Errorf("profile upsert: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

// --- todos ---

func (s *MemoryStore) todos(ctx context.Context, userID string) ([]model.Todo, error) {
	const q = `
SELECT id, task, time_to_complete, deadline, solutions, status
FROM todos WHERE user_id = $1 ORDER BY created_at;`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("todos read: %w", err)
	}
	defer rows.Close()

	var out []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *MemoryStore) todo(ctx context.Context, id string) (*model.Todo, error) {
	const q = `SELECT id, task, time_to_complete, deadline, solutions, status FROM todos WHERE id = $1;`
	row := s.pool.QueryRow(ctx, q, id)
	t, err := scanTodo(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func scanTodo(row pgx.Row) (*model.Todo, error) {
	var (
		t         model.Todo
		estimate  sql.NullInt64
		deadline  sql.NullTime
		solutions []byte
	)
	if err := row.Scan(&t.ID, &t.Task, &estimate, &deadline, &solutions, &t.Status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("todo scan: %w", err)
	}
	if estimate.Valid {
		v := int(estimate.Int64)
		t.TimeToComplete = &v
	}
	if deadline.Valid {
		v := deadline.Time
		t.Deadline = &v
	}
	if len(solutions) > 0 {
		_ = json.Unmarshal(solutions, &t.Solutions)
	}
	return &t, nil
}

func (s *MemoryStore) putTodo(ctx context.Context, userID, id string, update *model.Todo) error {
	merged := *update
	if existing, err := s.todo(ctx, id); err == nil {
		merged = model.MergeTodo(*existing, *update)
	} else if err != domain.ErrNotFound {
		return err
	}
	merged.ID = id
	if merged.Status == "" {
		merged.Status = model.TodoStatusNotStarted
	}

	solutions, _ := json.Marshal(merged.Solutions)
	var estimate sql.NullInt64
	if merged.TimeToComplete != nil {
		estimate = sql.NullInt64{Int64: int64(*merged.TimeToComplete), Valid: true}
	}
	var deadline sql.NullTime
	if merged.Deadline != nil {
		deadline = sql.NullTime{Time: *merged.Deadline, Valid: true}
	}

	const q = `
INSERT INTO todos (id, user_id, task, time_to_complete, deadline, solutions, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
ON CONFLICT (id) DO UPDATE SET
  task = EXCLUDED.task,
  time_to_complete = EXCLUDED.time_to_complete,
  deadline = EXCLUDED.deadline,
  solutions = EXCLUDED.solutions,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, q, id, userID, merged.Task, estimate, deadline, solutions, string(merged.Status)); err != nil {
		return fmt.Errorf("todo upsert: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

// --- instructions ---

func (s *MemoryStore) instructions(ctx context.Context, userID string) (*model.Instructions, error) {
	const q = `SELECT content FROM instructions WHERE user_id = $1;`
	var ins model.Instructions
	err := s.pool.QueryRow(ctx, q, userID).Scan(&ins.Content)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("instructions read: %w", err)
	}
	return &ins, nil
}

func (s *MemoryStore) putInstructions(ctx context.Context, userID string, v *model.Instructions) error {
	const q = `
INSERT INTO instructions (user_id, content, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (user_id) DO UPDATE SET
  content = EXCLUDED.content,
  updated_at = EXCLUDED.updated_at;`
	if _, err := s.pool.Exec(ctx, q, userID, v.Content); err != nil {
		return fmt.Errorf("instructions upsert: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

func marshalItem(key string, v any) repository.MemoryItem {
	b, _ := json.Marshal(v)
	return repository.MemoryItem{Key: key, Value: b}
}
