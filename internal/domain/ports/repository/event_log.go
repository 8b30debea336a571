package repository

import (
	"context"
	"time"

	"todo-maistro/internal/domain/model"
)

// EventLog is the append-only per-job event transport. Append assigns the
// next sequence for the job and returns it. Read returns events after
// fromSeq ("0" for the beginning), blocking up to block when none exist and
// returning an empty slice on timeout so the consumer can emit a keepalive
// and retry. Independent readers may tail the same log from different
// offsets.
type EventLog interface {
	Append(ctx context.Context, jobID string, ev *model.StreamEvent) (seq string, err error)
	Read(ctx context.Context, jobID, fromSeq string, count int64, block time.Duration) ([]model.StreamEvent, error)
}
