// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"todo-maistro/internal/domain/ports/adapter"
)

var _ adapter.ModelAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements adapter.ModelAdapter using the official SDK.
// End-of-turn normalization: a candidate finishing with FinishReasonStop
// and no function calls is final.
type GeminiAdapter struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string, maxTokens int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiAdapter{client: c, model: model, maxTokens: maxTokens}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Model() string { return g.model }

func (g *GeminiAdapter) Invoke(ctx context.Context, req adapter.InvokeRequest) (*adapter.InvokeResult, error) {
	contents := toGenAIContents(req.Messages)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &adapter.InvokeResult{Content: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("gemini function args: %w", err)
		}
		out.ToolCalls = append(out.ToolCalls, adapter.ToolCall{ID: fc.ID, Name: fc.Name, Args: args})
	}
	if resp.UsageMetadata != nil {
		out.Usage = adapter.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func (g *GeminiAdapter) StreamInvoke(ctx context.Context, req adapter.InvokeRequest) (<-chan adapter.Fragment, error) {
	contents := toGenAIContents(req.Messages)
	cfg := g.buildConfig(req)

	out := make(chan adapter.Fragment)
	go func() {
		defer close(out)

		var (
			cumulative string
			toolCalls  []adapter.ToolCall
			usage      adapter.Usage
			stopped    bool
		)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				out <- adapter.Fragment{Err: fmt.Errorf("gemini stream: %w", err)}
				return
			}
			for _, fc := range resp.FunctionCalls() {
				args, merr := json.Marshal(fc.Args)
				if merr != nil {
					out <- adapter.Fragment{Err: fmt.Errorf("gemini function args: %w", merr)}
					return
				}
				toolCalls = append(toolCalls, adapter.ToolCall{ID: fc.ID, Name: fc.Name, Args: args})
			}
			if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonStop {
				stopped = true
			}
			if resp.UsageMetadata != nil {
				usage = adapter.Usage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
			}
			if t := resp.Text(); t != "" {
				cumulative += t
				select {
				case out <- adapter.Fragment{Content: cumulative}:
				case <-ctx.Done():
					return
				}
			}
		}

		out <- adapter.Fragment{
			Content:   cumulative,
			ToolCalls: toolCalls,
			Usage:     usage,
			// Never final while a function call is pending.
			Final: stopped && len(toolCalls) == 0,
		}
	}()
	return out, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	contents := toGenAIContents(messages)
	resp, err := g.client.Models.CountTokens(ctx, g.model, contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

// --- internal ---

func (g *GeminiAdapter) buildConfig(req adapter.InvokeRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{tool}
	}
	if req.ToolChoice != "" {
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{req.ToolChoice},
			},
		}
	}
	return cfg
}

func toGenAIContents(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system", "tool":
			// Gemini has no separate system/tool role in history; carry
			// these as user-role context.
			role = genai.RoleUser
		}

		parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			_ = json.Unmarshal(tc.Args, &args)
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}
