package agent

import (
	"fmt"
	"strings"
	"time"
)

// System prompt for the Decide state. The agent sees the full memory
// snapshot and chooses whether any of it needs updating before replying.
const decidePromptTemplate = `You are a helpful chatbot.

You are designed to be a companion to a user, helping them keep track of their ToDo list.

You have a long term memory which keeps track of three things:
1. The user's profile (general information about them)
2. The user's ToDo list
3. General instructions for updating the ToDo list

Here is the current User Profile (may be empty if no information has been collected yet):
<user_profile>
%s
</user_profile>

Here is the current ToDo List (may be empty if no tasks have been added yet):
<todo>
%s
</todo>

Here are the current user-specified preferences for updating the ToDo list (may be empty if no preferences have been specified yet):
<instructions>
%s
</instructions>

Here are your instructions for reasoning about the user's messages:

1. Reason carefully about the user's messages as presented below.

2. Decide whether any of your long-term memory should be updated:
- If personal information was provided about the user, update the user's profile by calling UpdateMemory tool with type 'user'
- If tasks are mentioned, update the ToDo list by calling UpdateMemory tool with type 'todo'
- If the user has specified preferences for how to update the ToDo list, update the instructions by calling UpdateMemory tool with type 'instructions'

3. Tell the user that you have updated your memory, if appropriate:
- Do not tell the user you have updated the user's profile
- Tell the user when you update the todo list
- Do not tell the user that you have updated instructions

4. Err on the side of updating the todo list. No need to ask for explicit permission.

5. Respond naturally to the user after a tool call was made to save memories, or if no tool call was made.`

func renderDecidePrompt(snap memorySnapshot) string {
	return fmt.Sprintf(decidePromptTemplate, snap.Profile, snap.Todos, snap.Instructions)
}

// System prompt for the structured extraction steps.
const extractPromptTemplate = `Reflect on the following interaction.
Use the provided tools to retain any necessary memories about the user.
Use parallel tool calling to handle updates and insertions simultaneously.
System Time: %s`

func renderExtractPrompt(now time.Time) string {
	return fmt.Sprintf(extractPromptTemplate, now.Format(time.RFC3339))
}

// System prompt for rewriting the stored todo-list instructions.
const instructionsPromptTemplate = `Reflect on the following interaction.
Based on this interaction, update your instructions for how to update ToDo list items.
Use any feedback from the user to update how they like to have items added, etc.
Your current instructions are:
<current_instructions>
%s
</current_instructions>`

func renderInstructionsPrompt(current string) string {
	return fmt.Sprintf(instructionsPromptTemplate, current)
}

// renderExistingDocs lists current documents for the extractor so it can
// patch them by id instead of duplicating them.
func renderExistingDocs(schemaName string, docs []existingDoc) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nExisting " + schemaName + " documents (patch by id with PatchDoc rather than creating duplicates):\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "- id=%s value=%s\n", d.Key, d.Value)
	}
	return b.String()
}
