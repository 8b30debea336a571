package model

import "time"

type MemoryKind string

const (
	MemoryKindProfile      MemoryKind = "profile"
	MemoryKindTodo         MemoryKind = "todo"
	MemoryKindInstructions MemoryKind = "instructions"
)

// Profile is the singleton long-term record about a user.
type Profile struct {
	Name        string   `json:"name,omitempty"`
	Location    string   `json:"location,omitempty"`
	Job         string   `json:"job,omitempty"`
	Connections []string `json:"connections,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

type TodoStatus string

const (
	TodoStatusNotStarted TodoStatus = "not started"
	TodoStatusInProgress TodoStatus = "in progress"
	TodoStatusDone       TodoStatus = "done"
	TodoStatusArchived   TodoStatus = "archived"
)

func (s TodoStatus) Valid() bool {
	switch s {
	case TodoStatusNotStarted, TodoStatusInProgress, TodoStatusDone, TodoStatusArchived:
		return true
	}
	return false
}

// Todo is one task on a user's list. ID is the document key in the memory
// store; the extractor references it when patching an existing item.
type Todo struct {
	ID             string     `json:"id,omitempty"`
	Task           string     `json:"task"`
	TimeToComplete *int       `json:"time_to_complete,omitempty"` // minutes
	Deadline       *time.Time `json:"deadline,omitempty"`
	Solutions      []string   `json:"solutions"`
	Status         TodoStatus `json:"status"`
}

// Instructions is the free-text, user-specific guidance for how the todo
// list should be maintained.
type Instructions struct {
	Content string `json:"instructions"`
}

// MergeProfile overlays an extracted profile onto an existing one. Scalar
// fields are overwritten only when the update carries a value; list fields
// are replaced wholesale when non-empty, otherwise preserved.
func MergeProfile(existing, update Profile) Profile {
	out := existing
	if update.Name != "" {
		out.Name = update.Name
	}
	if update.Location != "" {
		out.Location = update.Location
	}
	if update.Job != "" {
		out.Job = update.Job
	}
	if len(update.Connections) > 0 {
		out.Connections = update.Connections
	}
	if len(update.Interests) > 0 {
		out.Interests = update.Interests
	}
	return out
}

// MergeTodo overlays a patch onto an existing todo. Task and status are
// overwritten when set, estimate and deadline when present, and the
// solutions list is replaced when non-empty. The document ID is always
// preserved from the existing item.
func MergeTodo(existing, patch Todo) Todo {
	out := existing
	if patch.Task != "" {
		out.Task = patch.Task
	}
	if patch.TimeToComplete != nil {
		out.TimeToComplete = patch.TimeToComplete
	}
	if patch.Deadline != nil {
		out.Deadline = patch.Deadline
	}
	if len(patch.Solutions) > 0 {
		out.Solutions = patch.Solutions
	}
	if patch.Status != "" && patch.Status.Valid() {
		out.Status = patch.Status
	}
	return out
}
