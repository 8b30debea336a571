package agent

import (
	"encoding/json"

	"todo-maistro/internal/domain/ports/adapter"
)

// Tool names the model calls. UpdateMemory is the Decide-state routing
// tool; Profile/ToDo are the extraction schemas; PatchDoc updates an
// existing document in place.
const (
	toolUpdateMemory = "UpdateMemory"
	toolProfile      = "Profile"
	toolTodo         = "ToDo"
	toolPatchDoc     = "PatchDoc"
)

// Wire values of UpdateMemory's update_type argument.
const (
	updateTypeProfile      = "user"
	updateTypeTodo         = "todo"
	updateTypeInstructions = "instructions"
)

type updateDecision struct {
	UpdateType string `json:"update_type"`
}

type patchDocArgs struct {
	JSONDocID    string          `json:"json_doc_id"`
	PlannedEdits string          `json:"planned_edits"`
	Value        json.RawMessage `json:"value"`
}

func updateMemoryTool() adapter.ToolDef {
	return adapter.ToolDef{
		Name:        toolUpdateMemory,
		Description: "Decision on what memory type to update",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"update_type": map[string]any{
					"type": "string",
					"enum": []string{updateTypeProfile, updateTypeTodo, updateTypeInstructions},
				},
			},
			"required": []string{"update_type"},
		},
	}
}

func profileTool() adapter.ToolDef {
	return adapter.ToolDef{
		Name:        toolProfile,
		Description: "Profile of the user you are chatting with",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":     map[string]any{"type": "string", "description": "The user's name"},
				"location": map[string]any{"type": "string", "description": "The user's location"},
				"job":      map[string]any{"type": "string", "description": "The user's job"},
				"connections": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Personal connections of the user, such as family members, friends, or coworkers",
				},
				"interests": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Interests that the user has",
				},
			},
		},
	}
}

func todoTool() adapter.ToolDef {
	return adapter.ToolDef{
		Name:        toolTodo,
		Description: "A task on the user's ToDo list",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{"type": "string", "description": "The task to be completed"},
				"time_to_complete": map[string]any{
					"type":        "integer",
					"description": "Estimated time to complete the task (minutes)",
				},
				"deadline": map[string]any{
					"type":        "string",
					"format":      "date-time",
					"description": "When the task needs to be completed by, if applicable",
				},
				"solutions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"minItems":    1,
					"description": "Specific, actionable solutions, such as concrete ideas or service providers relevant to completing the task",
				},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"not started", "in progress", "done", "archived"},
				},
			},
			"required": []string{"task", "solutions", "status"},
		},
	}
}

func patchDocTool(schemaName string) adapter.ToolDef {
	return adapter.ToolDef{
		Name:        toolPatchDoc,
		Description: "Update an existing " + schemaName + " document instead of creating a new one",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"json_doc_id":   map[string]any{"type": "string", "description": "The id of the document to update"},
				"planned_edits": map[string]any{"type": "string", "description": "A short plan describing the edits"},
				"value":         map[string]any{"type": "object", "description": "The fields to overwrite on the document"},
			},
			"required": []string{"json_doc_id", "planned_edits", "value"},
		},
	}
}
