package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestMemoryQueueDeliversJobs(t *testing.T) {
	q := NewMemoryQueue(4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan RunJob, 4)
	go q.Start(ctx, func(ctx context.Context, taskID, runID uuid.UUID) error {
		delivered <- RunJob{TaskID: taskID, RunID: runID}
		return nil
	})

	taskID := uuid.New()
	runID := uuid.New()
	if err := q.Enqueue(ctx, taskID, runID); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	select {
	case job := <-delivered:
		if job.TaskID != taskID || job.RunID != runID {
			t.Errorf("delivered %+v, expected task %s run %s", job, taskID, runID)
		}
	case <-time.After(time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestMemoryQueueRejectsWhenFull(t *testing.T) {
	q := NewMemoryQueue(1, zerolog.Nop())
	ctx := context.Background()

	// no worker running, so the second enqueue finds a full buffer
	if err := q.Enqueue(ctx, uuid.New(), uuid.New()); err != nil {
		t.Fatalf("first Enqueue returned error: %v", err)
	}
	if err := q.Enqueue(ctx, uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected error when the queue is full")
	}
}

func TestMemoryQueueStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue(4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Start(ctx, func(ctx context.Context, taskID, runID uuid.UUID) error {
			return nil
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
