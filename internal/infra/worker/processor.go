// File: internal/infra/worker/processor.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"todo-maistro/internal/agent"
	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/domain/ports/repository"
	"todo-maistro/internal/infra/logging"
	"todo-maistro/internal/infra/metrics"
)

// TurnRunner executes one conversational turn, delivering user-visible
// fragments through emit.
type TurnRunner interface {
	RunTurn(ctx context.Context, req agent.TurnRequest, emit func(agent.Fragment)) (*agent.TurnResult, error)
}

// TurnProcessor drains the job queue and runs each job's turn on the pool,
// publishing progress to the job's event log. Every processed job ends with
// exactly one start event and exactly one terminal (end or error) event.
type TurnProcessor struct {
	queue    repository.JobQueue
	registry repository.JobRegistry
	events   repository.EventLog
	locker   repository.DispatchLocker
	agent    TurnRunner
	pool     *Pool

	budget time.Duration
	block  time.Duration
	log    *zerolog.Logger
}

func NewTurnProcessor(
	queue repository.JobQueue,
	registry repository.JobRegistry,
	events repository.EventLog,
	locker repository.DispatchLocker,
	ag TurnRunner,
	pool *Pool,
	budget, block time.Duration,
	log *zerolog.Logger,
) *TurnProcessor {
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	if block <= 0 {
		block = time.Second
	}
	return &TurnProcessor{
		queue:    queue,
		registry: registry,
		events:   events,
		locker:   locker,
		agent:    ag,
		pool:     pool,
		budget:   budget,
		block:    block,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, handing dequeued jobs to the pool.
// When the pool is saturated the job goes back on the queue rather than
// being dropped.
func (p *TurnProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Error().Err(err).Msg("dequeue failed")
			time.Sleep(p.block)
			continue
		}
		if job == nil {
			continue
		}

		err = p.pool.Submit(func(taskCtx context.Context) error {
			return p.Process(taskCtx, job)
		})
		if errors.Is(err, domain.ErrQueueFull) {
			if reqErr := p.queue.Enqueue(ctx, job); reqErr != nil {
				p.log.Error().Str("job_id", job.ID).Err(reqErr).Msg("requeue failed, job lost")
			}
			time.Sleep(p.block)
		}
	}
}

// Process runs one job end to end under the dispatch lock and time budget.
func (p *TurnProcessor) Process(ctx context.Context, job *model.Job) error {
	ctx = logging.WithJobID(logging.WithThreadID(logging.WithUserID(ctx, job.UserID), job.ThreadID), job.ID)
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "TurnProcessor.Process")()

	token, err := p.locker.TryLock(ctx, dispatchKey(job.ID), p.budget+time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyDispatched) {
			log.Warn().Msg("job already dispatched, skipping")
			return nil
		}
		return fmt.Errorf("dispatch lock: %w", err)
	}
	defer func() {
		if err := p.locker.Unlock(context.Background(), dispatchKey(job.ID), token); err != nil {
			log.Warn().Err(err).Msg("dispatch unlock failed")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	started := time.Now()
	if err := p.registry.SetRunning(ctx, job.ID); err != nil {
		// Expired or already processed; the stream would have no audience
		// either way.
		log.Warn().Err(err).Msg("job not runnable")
		return nil
	}
	p.append(ctx, log, &model.StreamEvent{
		Type:     model.EventStart,
		JobID:    job.ID,
		ThreadID: job.ThreadID,
	})

	var (
		lastContent  string
		chunkID      int
		finalContent string
		sawFinal     bool
	)
	emit := func(f agent.Fragment) {
		if f.Final {
			// The end event is appended only after the whole turn
			// succeeds, so a late failure still yields a single
			// terminal event.
			sawFinal = true
			finalContent = f.Content
			return
		}
		if f.Content == lastContent || f.Content == "" {
			return
		}
		lastContent = f.Content
		chunkID++
		p.append(ctx, log, &model.StreamEvent{
			Type:     model.EventChunk,
			JobID:    job.ID,
			ThreadID: job.ThreadID,
			Content:  f.Content,
			ChunkID:  chunkID,
		})
	}

	res, err := p.agent.RunTurn(ctx, agent.TurnRequest{
		ThreadID: job.ThreadID,
		UserID:   job.UserID,
		Input:    job.Input,
	}, emit)
	// Finalization runs on a fresh context. The budget ctx is often
	// already expired here on a timed-out turn, and the stream must
	// still get its terminal event and the registry its final status.
	finCtx := context.Background()
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		p.append(finCtx, log, &model.StreamEvent{
			Type:     model.EventError,
			JobID:    job.ID,
			ThreadID: job.ThreadID,
			Error:    err.Error(),
		})
		if ferr := p.registry.SetFailed(finCtx, job.ID, err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("mark failed")
		}
		metrics.IncJobProcessed(string(model.JobStatusFailed))
		metrics.ObserveJobDuration(time.Since(started).Seconds())
		return err
	}

	// Some turns end without a tool-free final fragment, for example when
	// the model replied only through a todo summary.
	if !sawFinal {
		finalContent = res.Reply
	}
	p.append(finCtx, log, &model.StreamEvent{
		Type:     model.EventEnd,
		JobID:    job.ID,
		ThreadID: job.ThreadID,
		Content:  finalContent,
		Final:    true,
	})
	if err := p.registry.SetCompleted(finCtx, job.ID, res.Reply); err != nil {
		log.Error().Err(err).Msg("mark completed")
	}
	metrics.IncJobProcessed(string(model.JobStatusCompleted))
	metrics.ObserveJobDuration(time.Since(started).Seconds())
	log.Info().Int("loops", res.Loops).Dur("took", time.Since(started)).Msg("turn completed")
	return nil
}

// append writes one event, logging failures instead of aborting the turn;
// a reader that misses a chunk still converges on the cumulative content of
// the next one.
func (p *TurnProcessor) append(ctx context.Context, log *zerolog.Logger, ev *model.StreamEvent) {
	ev.Timestamp = time.Now()
	if _, err := p.events.Append(ctx, ev.JobID, ev); err != nil {
		log.Error().Str("event", string(ev.Type)).Err(err).Msg("event append failed")
	}
}

func dispatchKey(jobID string) string {
	return "dispatch:" + jobID
}
