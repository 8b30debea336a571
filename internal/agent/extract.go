package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/ports/adapter"
)

type existingDoc struct {
	Key   string
	Value json.RawMessage
}

// change is one document mutation requested by the extractor: either a new
// document ("new") or a patch of an existing one ("patch"). A single tool
// call maps to exactly one change.
type change struct {
	kind  string // "new" | "patch"
	docID string
	plan  string
	value json.RawMessage
}

// extract runs one structured-extraction invocation over the interaction,
// offering the record schema as a creation tool and, when existing
// documents are present, PatchDoc for in-place updates.
func (a *Agent) extract(ctx context.Context, msgs []adapter.Message, schemaName string, schema adapter.ToolDef, existing []existingDoc, allowInserts bool) ([]change, error) {
	system := renderExtractPrompt(time.Now()) + renderExistingDocs(schemaName, existing)

	tools := []adapter.ToolDef{schema}
	toolChoice := schemaName
	if len(existing) > 0 {
		tools = append(tools, patchDocTool(schemaName))
		if allowInserts {
			// Both creation and patching are on the table; let the model
			// pick per document.
			toolChoice = ""
		} else {
			toolChoice = toolPatchDoc
		}
	}

	res, err := a.model.Invoke(ctx, adapter.InvokeRequest{
		System:     system,
		Messages:   msgs,
		Tools:      tools,
		ToolChoice: toolChoice,
	})
	if err != nil {
		return nil, fmt.Errorf("%s extraction: %v: %w", schemaName, err, domain.ErrUpstreamInvocation)
	}

	var changes []change
	for _, call := range res.ToolCalls {
		switch call.Name {
		case toolPatchDoc:
			var args patchDocArgs
			if err := json.Unmarshal(call.Args, &args); err != nil {
				return nil, fmt.Errorf("patch args: %v: %w", err, domain.ErrMalformedDecision)
			}
			if args.JSONDocID == "" {
				return nil, fmt.Errorf("patch without document id: %w", domain.ErrMalformedDecision)
			}
			changes = append(changes, change{kind: "patch", docID: args.JSONDocID, plan: args.PlannedEdits, value: args.Value})
		case schemaName:
			changes = append(changes, change{kind: "new", value: call.Args})
		default:
			return nil, fmt.Errorf("extractor called %q: %w", call.Name, domain.ErrMalformedDecision)
		}
	}
	return changes, nil
}

// summarizeChanges renders what the extractor did in a human-readable form,
// mirroring one block per change. Used as the user-visible acknowledgment
// for todo updates.
func summarizeChanges(schemaName string, changes []change) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.kind == "patch" {
			parts = append(parts, fmt.Sprintf("Document %s updated:\nPlan: %s\nAdded content: %s", c.docID, c.plan, c.value))
			continue
		}
		parts = append(parts, fmt.Sprintf("New %s created:\nContent: %s", schemaName, c.value))
	}
	return strings.Join(parts, "\n\n")
}
