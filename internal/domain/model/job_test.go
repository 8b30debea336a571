package model

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobStatusQueued, JobStatusRunning, true},
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusQueued, JobStatusFailed, false},
		{JobStatusRunning, JobStatusCompleted, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusRunning, JobStatusQueued, false},
		{JobStatusCompleted, JobStatusRunning, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusRunning, false},
		{JobStatusFailed, JobStatusCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestNewJobStartsQueued(t *testing.T) {
	t.Parallel()

	job := NewJob("j1", "t1", "u1", "hello", JobTypeNewChat)
	if job.Status != JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
}

func TestStreamEventTerminal(t *testing.T) {
	t.Parallel()

	for _, c := range []struct {
		typ      EventType
		terminal bool
	}{
		{EventStart, false},
		{EventChunk, false},
		{EventKeepalive, false},
		{EventEnd, true},
		{EventError, true},
	} {
		ev := StreamEvent{Type: c.typ}
		if ev.Terminal() != c.terminal {
			t.Errorf("%s: terminal = %v, want %v", c.typ, ev.Terminal(), c.terminal)
		}
	}
}
