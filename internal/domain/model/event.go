package model

import "time"

type EventType string

const (
	EventStart     EventType = "start"
	EventChunk     EventType = "chunk"
	EventEnd       EventType = "end"
	EventError     EventType = "error"
	EventKeepalive EventType = "keepalive"
)

// StreamEvent is one entry in a job's append-only event log. Seq is assigned
// by the log on append and is strictly increasing within a job; readers use
// it as the resume offset.
type StreamEvent struct {
	Seq       string    `json:"-"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	ChunkID   int       `json:"chunk_id,omitempty"`
	Final     bool      `json:"final,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether this event closes the stream for its job.
func (e *StreamEvent) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}
