// Package agent implements the conversation turn state machine. A turn
// starts in Decide, which either answers the user directly or branches into
// one of three memory-update steps; every update step loops back to Decide.
// The turn ends when Decide produces no further update decision.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/adapter"
	"todo-maistro/internal/domain/ports/repository"
	"todo-maistro/internal/infra/metrics"
)

type state int

const (
	stateDecide state = iota
	stateUpdateProfile
	stateUpdateTodos
	stateUpdateInstructions
	stateDone
)

// Fragment is one user-visible piece of the turn's output. Content is the
// cumulative text of the currently visible assistant message; Final marks
// the turn's last fragment.
type Fragment struct {
	Content string
	Final   bool
}

// TurnRequest identifies one incoming user message to process.
type TurnRequest struct {
	ThreadID string
	UserID   string
	Input    string
}

// TurnResult is the terminal outcome of a turn.
type TurnResult struct {
	Reply string
	Loops int
}

type Agent struct {
	model    adapter.ModelAdapter
	store    repository.MemoryStore
	threads  repository.ThreadRepository
	maxLoops int
	log      *zerolog.Logger
}

func New(model adapter.ModelAdapter, store repository.MemoryStore, threads repository.ThreadRepository, maxLoops int, log *zerolog.Logger) *Agent {
	if maxLoops <= 0 {
		maxLoops = 8
	}
	return &Agent{model: model, store: store, threads: threads, maxLoops: maxLoops, log: log}
}

// RunTurn executes one full turn. Fragments are delivered to emit in order;
// the caller owns deduplication and transport. On success the user message
// and final reply are appended to the thread checkpoint.
func (a *Agent) RunTurn(ctx context.Context, req TurnRequest, emit func(Fragment)) (*TurnResult, error) {
	history, err := a.threads.Messages(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	// An unknown thread simply reads as empty history: fresh thread.
	msgs := make([]adapter.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, adapter.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, adapter.Message{Role: "user", Content: req.Input})

	var (
		st    = stateDecide
		loops int
		reply string
	)
	for st != stateDone {
		switch st {
		case stateDecide:
			loops++
			if loops > a.maxLoops {
				return nil, fmt.Errorf("turn exceeded %d decide visits: %w", a.maxLoops, domain.ErrMalformedDecision)
			}
			out, err := a.decide(ctx, req.UserID, msgs, emit)
			if err != nil {
				return nil, err
			}
			if out.call == nil {
				reply = out.content
				st = stateDone
				continue
			}
			msgs = append(msgs, adapter.Message{
				Role:      "assistant",
				Content:   out.content,
				ToolCalls: []adapter.ToolCall{*out.call},
			})
			switch out.updateType {
			case updateTypeProfile:
				st = stateUpdateProfile
			case updateTypeTodo:
				st = stateUpdateTodos
			case updateTypeInstructions:
				st = stateUpdateInstructions
			default:
				return nil, fmt.Errorf("update type %q: %w", out.updateType, domain.ErrMalformedDecision)
			}

		case stateUpdateProfile:
			// The trailing decision message is not part of the interaction
			// the extractor reflects on.
			if err := a.updateProfile(ctx, req.UserID, msgs[:len(msgs)-1]); err != nil {
				return nil, err
			}
			metrics.IncMemoryUpdate(string(model.MemoryKindProfile))
			msgs = a.acknowledge(msgs, "updated profile")
			st = stateDecide

		case stateUpdateTodos:
			summary, err := a.updateTodos(ctx, req.UserID, msgs[:len(msgs)-1])
			if err != nil {
				return nil, err
			}
			metrics.IncMemoryUpdate(string(model.MemoryKindTodo))
			// Todo changes are the one update the user gets to see.
			if summary != "" {
				emit(Fragment{Content: summary})
			} else {
				summary = "no todo changes were necessary"
			}
			msgs = a.acknowledge(msgs, summary)
			st = stateDecide

		case stateUpdateInstructions:
			if err := a.updateInstructions(ctx, req.UserID, msgs[:len(msgs)-1]); err != nil {
				return nil, err
			}
			metrics.IncMemoryUpdate(string(model.MemoryKindInstructions))
			msgs = a.acknowledge(msgs, "updated instructions")
			st = stateDecide
		}
	}
	metrics.ObserveTurnLoops(loops)

	checkpoint := []model.ChatMessage{
		model.NewChatMessage(req.ThreadID, "user", req.Input),
		model.NewChatMessage(req.ThreadID, "assistant", reply),
	}
	if err := a.threads.Append(ctx, req.ThreadID, checkpoint); err != nil {
		return nil, fmt.Errorf("checkpoint turn: %w", err)
	}
	return &TurnResult{Reply: reply, Loops: loops}, nil
}

// acknowledge closes the pending tool call so the next Decide invocation
// sees a well-formed history.
func (a *Agent) acknowledge(msgs []adapter.Message, content string) []adapter.Message {
	last := msgs[len(msgs)-1]
	callID := ""
	if len(last.ToolCalls) > 0 {
		callID = last.ToolCalls[0].ID
	}
	return append(msgs, adapter.Message{Role: "tool", Content: content, ToolCallID: callID})
}

type decideOutput struct {
	content    string
	call       *adapter.ToolCall
	updateType string
}

// decide streams one model invocation with the UpdateMemory tool bound but
// not forced. Content fragments pass straight through to emit; the
// adapter's normalized Final flag marks the turn's terminal fragment and is
// never set on a tool-bearing fragment.
func (a *Agent) decide(ctx context.Context, userID string, msgs []adapter.Message, emit func(Fragment)) (*decideOutput, error) {
	snap, err := a.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load memory snapshot: %w", err)
	}

	frags, err := a.model.StreamInvoke(ctx, adapter.InvokeRequest{
		System:   renderDecidePrompt(snap),
		Messages: msgs,
		Tools:    []adapter.ToolDef{updateMemoryTool()},
	})
	if err != nil {
		return nil, fmt.Errorf("decide: %v: %w", err, domain.ErrUpstreamInvocation)
	}

	out := &decideOutput{}
	for f := range frags {
		if f.Err != nil {
			return nil, fmt.Errorf("decide stream: %v: %w", f.Err, domain.ErrUpstreamInvocation)
		}
		if f.Content != "" {
			out.content = f.Content
		}
		if len(f.ToolCalls) > 0 {
			call := f.ToolCalls[0]
			out.call = &call
		}
		if f.Content != "" || f.Final {
			emit(Fragment{Content: f.Content, Final: f.Final})
		}
	}
	if out.call == nil {
		return out, nil
	}

	var dec updateDecision
	if err := json.Unmarshal(out.call.Args, &dec); err != nil {
		return nil, fmt.Errorf("decision args: %v: %w", err, domain.ErrMalformedDecision)
	}
	out.updateType = dec.UpdateType
	return out, nil
}

type memorySnapshot struct {
	Profile      string
	Todos        string
	Instructions string
}

// loadSnapshot reads the three memory namespaces fresh; the snapshot lives
// only for this Decide visit.
func (a *Agent) loadSnapshot(ctx context.Context, userID string) (memorySnapshot, error) {
	var snap memorySnapshot

	items, err := a.store.Search(ctx, repository.Namespace{Kind: model.MemoryKindProfile, UserID: userID})
	if err != nil {
		return snap, err
	}
	if len(items) > 0 {
		snap.Profile = string(items[0].Value)
	}

	items, err = a.store.Search(ctx, repository.Namespace{Kind: model.MemoryKindTodo, UserID: userID})
	if err != nil {
		return snap, err
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, string(it.Value))
	}
	snap.Todos = strings.Join(lines, "\n")

	items, err = a.store.Search(ctx, repository.Namespace{Kind: model.MemoryKindInstructions, UserID: userID})
	if err != nil {
		return snap, err
	}
	if len(items) > 0 {
		snap.Instructions = string(items[0].Value)
	}
	return snap, nil
}

func (a *Agent) updateProfile(ctx context.Context, userID string, msgs []adapter.Message) error {
	ns := repository.Namespace{Kind: model.MemoryKindProfile, UserID: userID}
	existing, err := a.existingDocs(ctx, ns)
	if err != nil {
		return err
	}

	changes, err := a.extract(ctx, msgs, toolProfile, profileTool(), existing, false)
	if err != nil {
		return err
	}
	for _, c := range changes {
		var p model.Profile
		if err := json.Unmarshal(c.value, &p); err != nil {
			return fmt.Errorf("profile value: %v: %w", err, domain.ErrMalformedDecision)
		}
		key := c.docID
		if key == "" {
			key = userID // one profile per user
		}
		if err := a.store.Put(ctx, ns, key, &p); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) updateTodos(ctx context.Context, userID string, msgs []adapter.Message) (string, error) {
	ns := repository.Namespace{Kind: model.MemoryKindTodo, UserID: userID}
	existing, err := a.existingDocs(ctx, ns)
	if err != nil {
		return "", err
	}

	changes, err := a.extract(ctx, msgs, toolTodo, todoTool(), existing, true)
	if err != nil {
		return "", err
	}
	for _, c := range changes {
		var t model.Todo
		if err := json.Unmarshal(c.value, &t); err != nil {
			return "", fmt.Errorf("todo value: %v: %w", err, domain.ErrMalformedDecision)
		}
		key := c.docID
		if key == "" {
			key = uuid.NewString()
		}
		if err := a.store.Put(ctx, ns, key, &t); err != nil {
			return "", err
		}
	}
	return summarizeChanges(toolTodo, changes), nil
}

func (a *Agent) updateInstructions(ctx context.Context, userID string, msgs []adapter.Message) error {
	ns := repository.Namespace{Kind: model.MemoryKindInstructions, UserID: userID}

	current := ""
	if item, err := a.store.Get(ctx, ns, userID); err == nil {
		var ins model.Instructions
		if err := json.Unmarshal(item.Value, &ins); err == nil {
			current = ins.Content
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	prompt := append(append([]adapter.Message{}, msgs...), adapter.Message{
		Role:    "user",
		Content: "Please update the instructions based on the conversation",
	})
	res, err := a.model.Invoke(ctx, adapter.InvokeRequest{
		System:   renderInstructionsPrompt(current),
		Messages: prompt,
	})
	if err != nil {
		return fmt.Errorf("instructions rewrite: %v: %w", err, domain.ErrUpstreamInvocation)
	}
	return a.store.Put(ctx, ns, userID, &model.Instructions{Content: res.Content})
}

func (a *Agent) existingDocs(ctx context.Context, ns repository.Namespace) ([]existingDoc, error) {
	items, err := a.store.Search(ctx, ns)
	if err != nil {
		return nil, err
	}
	docs := make([]existingDoc, 0, len(items))
	for _, it := range items {
		docs = append(docs, existingDoc{Key: it.Key, Value: it.Value})
	}
	return docs, nil
}
