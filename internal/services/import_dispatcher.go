package services

import (
	"context"
	"errors"
	"fmt"

	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunQueue hands a pending run off to a background worker. At-least-once
// delivery is enough: the pending->running compare-and-swap makes duplicate
// deliveries no-ops.
type RunQueue interface {
	Enqueue(ctx context.Context, taskID, runID uuid.UUID) error
}

// RunLock serializes the active-run check and run creation for one task
type RunLock interface {
	Acquire(ctx context.Context, taskID uuid.UUID) (release func(), err error)
}

// ImportDispatcher validates a run request, creates the run row and either
// executes it inline or enqueues it for a background worker.
type ImportDispatcher struct {
	tasks   TaskStore
	sources SourceStore
	runs    RunStore
	engine  *ImportEngine
	queue   RunQueue
	lock    RunLock
	log     zerolog.Logger
}

func NewImportDispatcher(tasks TaskStore, sources SourceStore, runs RunStore, engine *ImportEngine, queue RunQueue, lock RunLock, log zerolog.Logger) *ImportDispatcher {
	return &ImportDispatcher{
		tasks:   tasks,
		sources: sources,
		runs:    runs,
		engine:  engine,
		queue:   queue,
		lock:    lock,
		log:     log.With().Str("service", "import-dispatcher").Logger(),
	}
}

// RequestRun starts a run for the task. Inactive tasks, tasks with an active
// run and misconfigured data sources are rejected without creating a run row.
// With RunInBackground the run is enqueued and returned in pending status,
// otherwise it executes inline and is returned in its terminal status.
func (d *ImportDispatcher) RequestRun(ctx context.Context, taskID uuid.UUID) (*models.ImportTaskRun, error) {
	task, err := d.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load import task: %w", err)
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}
	if task.ImportType == models.ImportTypeProducts && !task.HasSourceCategory() {
		return nil, ErrMissingSourceCategory
	}

	// Surface configuration errors before creating any run row
	ds, err := d.sources.GetByID(ctx, task.DataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load data source: %w", err)
	}
	if !ds.IsActive {
		return nil, &sourceclient.ConfigurationError{Reason: fmt.Sprintf("data source %s is inactive", ds.Slug)}
	}
	if err := sourceclient.Validate(ds, requestKind(task.ImportType)); err != nil {
		return nil, err
	}

	release, err := d.lock.Acquire(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	active, err := d.runs.HasActiveRun(ctx, task.ID)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to check active runs: %w", err)
	}
	if active {
		release()
		return nil, ErrRunConflict
	}

	run := &models.ImportTaskRun{
		TaskID: task.ID,
		Status: models.ImportRunStatusPending,
	}
	if err := d.runs.CreateRun(ctx, run); err != nil {
		release()
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	release()

	if task.RunInBackground {
		if err := d.queue.Enqueue(ctx, task.ID, run.ID); err != nil {
			// the run must not linger and block the operator's next attempt
			d.engine.failRun(ctx, run, "failed to enqueue run: "+err.Error())
			return nil, fmt.Errorf("failed to enqueue run: %w", err)
		}
		d.log.Info().
			Str("task_id", task.ID.String()).
			Str("run_id", run.ID.String()).
			Msg("Import run enqueued")
		return run, nil
	}

	if err := d.engine.Execute(ctx, task, run); err != nil {
		return run, err
	}
	return run, nil
}

// ExecuteQueued executes a previously enqueued run. Called by the queue
// worker; a duplicate delivery of an already finished run is a no-op.
func (d *ImportDispatcher) ExecuteQueued(ctx context.Context, taskID, runID uuid.UUID) error {
	task, err := d.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load import task: %w", err)
	}
	run, err := d.runs.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run.Finished() {
		// duplicate delivery of an already finished run
		return nil
	}

	err = d.engine.Execute(ctx, task, run)
	if err != nil && isRunRejection(err) {
		// The task or source was reconfigured while the job sat in the
		// queue. The message is consumed, so nobody will retry this run;
		// finalize it or the pending row blocks the task forever.
		d.engine.failRun(ctx, run, err.Error())
	}
	return err
}

// isRunRejection reports whether the engine refused the run before starting
// it. ErrRunConflict is excluded: a lost claim means another worker owns the
// run and its row must not be touched.
func isRunRejection(err error) bool {
	var configErr *sourceclient.ConfigurationError
	return errors.Is(err, ErrTaskInactive) ||
		errors.Is(err, ErrMissingSourceCategory) ||
		errors.As(err, &configErr)
}
