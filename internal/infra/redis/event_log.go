package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
	"todo-maistro/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
)

var _ repository.EventLog = (*EventLog)(nil)

// EventLog stores each job's events in a Redis Stream under
// job:{id}:stream. Stream entry IDs provide the monotonic per-job sequence;
// the payload travels as one JSON blob under the "data" field. The stream
// TTL is refreshed on every append so it runs from the last write, which
// keeps it at or beyond the registry TTL when configured accordingly.
type EventLog struct {
	client *Client
	ttl    time.Duration
}

func NewEventLog(client *Client, ttl time.Duration) *EventLog {
	return &EventLog{client: client, ttl: ttl}
}

func streamKey(jobID string) string { return fmt.Sprintf("job:%s:stream", jobID) }

func (l *EventLog) Append(ctx context.Context, jobID string, ev *model.StreamEvent) (string, error) {
	ev.JobID = jobID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	key := streamKey(jobID)
	seq, err := l.client.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	if err := l.client.cli.Expire(ctx, key, l.ttl).Err(); err != nil {
		return "", fmt.Errorf("stream expire: %w", err)
	}
	ev.Seq = seq
	metrics.IncEventAppended(string(ev.Type))
	return seq, nil
}

func (l *EventLog) Read(ctx context.Context, jobID, fromSeq string, count int64, block time.Duration) ([]model.StreamEvent, error) {
	if fromSeq == "" {
		fromSeq = "0"
	}
	res, err := l.client.cli.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamKey(jobID), fromSeq},
		Count:   count,
		Block:   block,
	}).Result()
	if err == redisNil {
		return nil, nil // block timeout, caller keeps alive and retries
	}
	if err != nil {
		return nil, fmt.Errorf("xread: %w", err)
	}

	var out []model.StreamEvent
	for _, stream := range res {
		for _, msg := range stream.Messages {
			raw, ok := msg.Values["data"].(string)
			if !ok {
				continue
			}
			var ev model.StreamEvent
			if err := json.Unmarshal([]byte(raw), &ev); err != nil {
				return nil, fmt.Errorf("decode event %s: %w", msg.ID, err)
			}
			ev.Seq = msg.ID
			out = append(out, ev)
		}
	}
	return out, nil
}
