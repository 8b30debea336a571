package ai

import (
	"context"

	"todo-maistro/internal/domain/ports/adapter"
)

var _ adapter.ModelAdapter = (*NoopAdapter)(nil)

// NoopAdapter implements adapter.ModelAdapter for local/dev runs without a
// real provider. It never requests a tool, so every turn resolves in one
// Decide visit.
type NoopAdapter struct {
	Reply string
}

func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{Reply: "This is a canned response; no model provider is configured."}
}

func (a *NoopAdapter) Name() string { return "noop" }

func (a *NoopAdapter) Invoke(ctx context.Context, req adapter.InvokeRequest) (*adapter.InvokeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &adapter.InvokeResult{Content: a.Reply}, nil
}

func (a *NoopAdapter) StreamInvoke(ctx context.Context, req adapter.InvokeRequest) (<-chan adapter.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan adapter.Fragment, 2)
	ch <- adapter.Fragment{Content: a.Reply}
	ch <- adapter.Fragment{Content: a.Reply, Final: true}
	close(ch)
	return ch, nil
}

func (a *NoopAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(m.Content) / 4
	}
	return n, nil
}
