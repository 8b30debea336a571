package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/adapter"
	"todo-maistro/internal/domain/ports/repository"
)

func newTestAgent(m *fakeModel, store *memStore, threads *memThreads) *Agent {
	logger := zerolog.Nop()
	return New(m, store, threads, 8, &logger)
}

func collect(frags *[]Fragment) func(Fragment) {
	return func(f Fragment) { *frags = append(*frags, f) }
}

func TestRunTurnDirectReply(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		{frags: []adapter.Fragment{
			{Content: "Hello"},
			{Content: "Hello there"},
			{Content: "Hello there", Final: true},
		}},
	}}
	store := newMemStore()
	threads := newMemThreads()
	a := newTestAgent(m, store, threads)

	var emitted []Fragment
	res, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "hi"}, collect(&emitted))
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if res.Reply != "Hello there" {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.Loops != 1 {
		t.Errorf("loops = %d, want 1", res.Loops)
	}
	if len(emitted) == 0 || !emitted[len(emitted)-1].Final {
		t.Fatalf("expected a final fragment, got %v", emitted)
	}

	history, _ := threads.Messages(context.Background(), "t1")
	if len(history) != 2 {
		t.Fatalf("checkpoint has %d messages, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("checkpoint roles: %s, %s", history[0].Role, history[1].Role)
	}
	if history[1].Content != "Hello there" {
		t.Errorf("checkpoint reply: %q", history[1].Content)
	}
}

func TestRunTurnUpdatesProfile(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		// Decide: route to the profile update.
		{frags: []adapter.Fragment{
			{ToolCalls: []adapter.ToolCall{toolCall("c1", toolUpdateMemory, map[string]string{"update_type": "user"})}},
		}},
		// Extract: create a profile document.
		{res: &adapter.InvokeResult{ToolCalls: []adapter.ToolCall{
			toolCall("c2", toolProfile, map[string]any{"name": "Lance", "location": "San Francisco"}),
		}}},
		// Decide again: reply and finish.
		{frags: []adapter.Fragment{
			{Content: "Noted, Lance!", Final: true},
		}},
	}}
	store := newMemStore()
	threads := newMemThreads()
	a := newTestAgent(m, store, threads)

	var emitted []Fragment
	res, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "I'm Lance from SF"}, collect(&emitted))
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if res.Reply != "Noted, Lance!" {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.Loops != 2 {
		t.Errorf("loops = %d, want 2", res.Loops)
	}

	ns := repository.Namespace{Kind: model.MemoryKindProfile, UserID: "u1"}
	item, err := store.Get(context.Background(), ns, "u1")
	if err != nil {
		t.Fatalf("profile not stored: %v", err)
	}
	var p model.Profile
	if err := json.Unmarshal(item.Value, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Name != "Lance" || p.Location != "San Francisco" {
		t.Errorf("profile = %+v", p)
	}

	// Profile updates stay invisible to the user.
	for _, f := range emitted {
		if strings.Contains(f.Content, toolProfile) {
			t.Errorf("profile ack leaked to user: %q", f.Content)
		}
	}
}

func TestRunTurnTodoSummaryVisible(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		{frags: []adapter.Fragment{
			{ToolCalls: []adapter.ToolCall{toolCall("c1", toolUpdateMemory, map[string]string{"update_type": "todo"})}},
		}},
		{res: &adapter.InvokeResult{ToolCalls: []adapter.ToolCall{
			toolCall("c2", toolTodo, map[string]any{
				"task":      "renew passport",
				"solutions": []string{"book appointment"},
				"status":    "not started",
			}),
		}}},
		{frags: []adapter.Fragment{
			{Content: "Added it to your list.", Final: true},
		}},
	}}
	store := newMemStore()
	threads := newMemThreads()
	a := newTestAgent(m, store, threads)

	var emitted []Fragment
	if _, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "remind me to renew my passport"}, collect(&emitted)); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	sawSummary := false
	for _, f := range emitted {
		if strings.Contains(f.Content, "New ToDo created") {
			sawSummary = true
		}
	}
	if !sawSummary {
		t.Errorf("todo summary not emitted: %v", emitted)
	}

	ns := repository.Namespace{Kind: model.MemoryKindTodo, UserID: "u1"}
	items, _ := store.Search(context.Background(), ns)
	if len(items) != 1 {
		t.Fatalf("stored %d todos, want 1", len(items))
	}
	var todo model.Todo
	if err := json.Unmarshal(items[0].Value, &todo); err != nil {
		t.Fatalf("decode todo: %v", err)
	}
	if todo.Task != "renew passport" {
		t.Errorf("todo = %+v", todo)
	}
}

func TestRunTurnUpdatesInstructions(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		{frags: []adapter.Fragment{
			{ToolCalls: []adapter.ToolCall{toolCall("c1", toolUpdateMemory, map[string]string{"update_type": "instructions"})}},
		}},
		// Instructions rewrite is a plain completion, no tools.
		{res: &adapter.InvokeResult{Content: "Always add a deadline when creating tasks."}},
		{frags: []adapter.Fragment{
			{Content: "I'll remember that.", Final: true},
		}},
	}}
	store := newMemStore()
	threads := newMemThreads()
	a := newTestAgent(m, store, threads)

	var emitted []Fragment
	if _, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "always set deadlines"}, collect(&emitted)); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	ns := repository.Namespace{Kind: model.MemoryKindInstructions, UserID: "u1"}
	item, err := store.Get(context.Background(), ns, "u1")
	if err != nil {
		t.Fatalf("instructions not stored: %v", err)
	}
	var ins model.Instructions
	if err := json.Unmarshal(item.Value, &ins); err != nil {
		t.Fatalf("decode instructions: %v", err)
	}
	if ins.Content != "Always add a deadline when creating tasks." {
		t.Errorf("instructions = %q", ins.Content)
	}
}

func TestRunTurnUnknownUpdateType(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		{frags: []adapter.Fragment{
			{ToolCalls: []adapter.ToolCall{toolCall("c1", toolUpdateMemory, map[string]string{"update_type": "bogus"})}},
		}},
	}}
	a := newTestAgent(m, newMemStore(), newMemThreads())

	_, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "hi"}, func(Fragment) {})
	if !errors.Is(err, domain.ErrMalformedDecision) {
		t.Fatalf("err = %v, want ErrMalformedDecision", err)
	}
}

func TestRunTurnLoopCap(t *testing.T) {
	t.Parallel()

	// The model keeps routing to a profile update and never finishes.
	decideStep := scriptStep{frags: []adapter.Fragment{
		{ToolCalls: []adapter.ToolCall{toolCall("c", toolUpdateMemory, map[string]string{"update_type": "user"})}},
	}}
	extractStep := scriptStep{res: &adapter.InvokeResult{ToolCalls: []adapter.ToolCall{
		toolCall("e", toolProfile, map[string]any{"name": "Lance"}),
	}}}
	m := &fakeModel{}
	for i := 0; i < 10; i++ {
		m.steps = append(m.steps, decideStep, extractStep)
	}
	logger := zerolog.Nop()
	a := New(m, newMemStore(), newMemThreads(), 2, &logger)

	_, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "hi"}, func(Fragment) {})
	if !errors.Is(err, domain.ErrMalformedDecision) {
		t.Fatalf("err = %v, want ErrMalformedDecision", err)
	}
}

func TestRunTurnModelFailure(t *testing.T) {
	t.Parallel()

	m := &fakeModel{steps: []scriptStep{
		{err: errors.New("rate limited")},
	}}
	a := newTestAgent(m, newMemStore(), newMemThreads())

	_, err := a.RunTurn(context.Background(), TurnRequest{ThreadID: "t1", UserID: "u1", Input: "hi"}, func(Fragment) {})
	if !errors.Is(err, domain.ErrUpstreamInvocation) {
		t.Fatalf("err = %v, want ErrUpstreamInvocation", err)
	}
}
