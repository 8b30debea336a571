package model

import "time"

// ChatMessage is one role-tagged entry in a thread's persistent history.
type ChatMessage struct {
	ThreadID  string
	Role      string // "user" | "assistant" | "system"
	Content   string
	Timestamp time.Time
}

func NewChatMessage(threadID, role, content string) ChatMessage {
	return ChatMessage{
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}
