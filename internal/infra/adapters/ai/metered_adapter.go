package ai

import (
	"context"
	"time"

	"todo-maistro/internal/domain/ports/adapter"
	"todo-maistro/internal/infra/metrics"
)

var _ adapter.ModelAdapter = (*MeteredAdapter)(nil)

// MeteredAdapter wraps any model adapter and records token usage and call
// latency for each invocation.
type MeteredAdapter struct {
	inner adapter.ModelAdapter
}

func NewMeteredAdapter(inner adapter.ModelAdapter) *MeteredAdapter {
	return &MeteredAdapter{inner: inner}
}

func (m *MeteredAdapter) Name() string { return m.inner.Name() }

func (m *MeteredAdapter) Invoke(ctx context.Context, req adapter.InvokeRequest) (*adapter.InvokeResult, error) {
	start := time.Now()
	res, err := m.inner.Invoke(ctx, req)
	u := adapter.Usage{}
	if res != nil {
		u = res.Usage
	}
	m.observe(ctx, req, u, start, err == nil)
	return res, err
}

func (m *MeteredAdapter) StreamInvoke(ctx context.Context, req adapter.InvokeRequest) (<-chan adapter.Fragment, error) {
	start := time.Now()
	frags, err := m.inner.StreamInvoke(ctx, req)
	if err != nil {
		m.observe(ctx, req, adapter.Usage{}, start, false)
		return nil, err
	}

	out := make(chan adapter.Fragment)
	go func() {
		defer close(out)
		var usage adapter.Usage
		ok := true
		for f := range frags {
			if f.Err != nil {
				ok = false
			}
			if f.Usage.TotalTokens > 0 {
				usage = f.Usage
			}
			out <- f
		}
		m.observe(ctx, req, usage, start, ok)
	}()
	return out, nil
}

func (m *MeteredAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	return m.inner.CountTokens(ctx, messages)
}

func (m *MeteredAdapter) observe(ctx context.Context, req adapter.InvokeRequest, u adapter.Usage, start time.Time, success bool) {
	// Streamed responses do not always carry usage metadata; count the
	// prompt locally so token metrics never silently read zero.
	if u.PromptTokens == 0 {
		if n, err := m.inner.CountTokens(ctx, req.Messages); err == nil {
			u.PromptTokens = n
			if u.TotalTokens == 0 {
				u.TotalTokens = n + u.CompletionTokens
			}
		}
	}
	model := ""
	if named, ok := m.inner.(interface{ Model() string }); ok {
		model = named.Model()
	}
	metrics.ObserveModelCall(
		m.inner.Name(), model,
		u.PromptTokens, u.CompletionTokens, u.TotalTokens,
		int(time.Since(start).Milliseconds()), success,
	)
}
