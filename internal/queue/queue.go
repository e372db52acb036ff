// Package queue hands pending import runs to a background worker. Delivery
// is at-least-once; the run ledger's pending->running compare-and-swap makes
// duplicates harmless.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunJob identifies one enqueued import run
type RunJob struct {
	TaskID uuid.UUID `json:"task_id"`
	RunID  uuid.UUID `json:"run_id"`
}

// Executor processes one delivered run job
type Executor func(ctx context.Context, taskID, runID uuid.UUID) error

// MemoryQueue is an in-process run queue backed by a buffered channel.
// The default when no broker is configured.
type MemoryQueue struct {
	jobs chan RunJob
	log  zerolog.Logger
}

func NewMemoryQueue(size int, log zerolog.Logger) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{
		jobs: make(chan RunJob, size),
		log:  log.With().Str("service", "run-queue").Logger(),
	}
}

// Enqueue adds a run job. Fails fast when the buffer is full rather than
// blocking the request handler.
func (q *MemoryQueue) Enqueue(ctx context.Context, taskID, runID uuid.UUID) error {
	select {
	case q.jobs <- RunJob{TaskID: taskID, RunID: runID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("run queue is full")
	}
}

// Start consumes jobs until ctx is cancelled. Call from a goroutine.
func (q *MemoryQueue) Start(ctx context.Context, execute Executor) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			if err := execute(ctx, job.TaskID, job.RunID); err != nil {
				q.log.Error().Err(err).
					Str("task_id", job.TaskID.String()).
					Str("run_id", job.RunID.String()).
					Msg("Import run execution failed")
			}
		}
	}
}
