package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeQueue struct {
	jobs []uuid.UUID
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, taskID, runID uuid.UUID) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, runID)
	return nil
}

type dispatcherFixture struct {
	*engineFixture
	tasks      *fakeTaskStore
	queue      *fakeQueue
	dispatcher *ImportDispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	fx := newEngineFixture()
	tasks := &fakeTaskStore{tasks: make(map[uuid.UUID]*models.ImportTask)}
	q := &fakeQueue{}
	dispatcher := NewImportDispatcher(tasks, fx.sources, fx.runs, fx.engine, q, NewLocalRunLock(), zerolog.Nop())
	return &dispatcherFixture{
		engineFixture: fx,
		tasks:         tasks,
		queue:         q,
		dispatcher:    dispatcher,
	}
}

func (fx *dispatcherFixture) addTask(importType models.ImportType) *models.ImportTask {
	task := fx.newTask(importType)
	fx.tasks.tasks[task.ID] = task
	return task
}

func TestRequestRunInline(t *testing.T) {
	fx := newDispatcherFixture()
	fx.fetcher.categories = []sourceclient.RemoteCategory{
		{ID: sourceclient.FlexString("1"), Name: "Books"},
	}
	task := fx.addTask(models.ImportTypeCategories)

	run, err := fx.dispatcher.RequestRun(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RequestRun returned error: %v", err)
	}
	if run.Status != models.ImportRunStatusCompleted {
		t.Fatalf("run status = %s, expected inline run to finish", run.Status)
	}
	if run.CreatedItems != 1 {
		t.Errorf("created = %d, expected 1", run.CreatedItems)
	}
	if len(fx.queue.jobs) != 0 {
		t.Error("inline run must not be enqueued")
	}
}

func TestRequestRunBackground(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)
	task.RunInBackground = true

	run, err := fx.dispatcher.RequestRun(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RequestRun returned error: %v", err)
	}
	if run.Status != models.ImportRunStatusPending {
		t.Fatalf("run status = %s, expected pending until the worker picks it up", run.Status)
	}
	if len(fx.queue.jobs) != 1 || fx.queue.jobs[0] != run.ID {
		t.Fatalf("queue jobs = %v, expected the new run", fx.queue.jobs)
	}
}

func TestRequestRunInactiveTask(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)
	task.IsActive = false

	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); !errors.Is(err, ErrTaskInactive) {
		t.Fatalf("err = %v, expected ErrTaskInactive", err)
	}
	if len(fx.runs.runs) != 0 {
		t.Error("rejected request must not create a run row")
	}
}

func TestRequestRunConflict(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)

	active := &models.ImportTaskRun{TaskID: task.ID, Status: models.ImportRunStatusRunning}
	fx.runs.CreateRun(context.Background(), active)

	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); !errors.Is(err, ErrRunConflict) {
		t.Fatalf("err = %v, expected ErrRunConflict", err)
	}
	if len(fx.runs.runs) != 1 {
		t.Error("conflicting request must not create a second run row")
	}
}

func TestRequestRunConfigurationError(t *testing.T) {
	fx := newDispatcherFixture()
	fx.ds.ProductByCategoryURL = ""
	task := fx.addTask(models.ImportTypeProducts)

	_, err := fx.dispatcher.RequestRun(context.Background(), task.ID)
	var configErr *sourceclient.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("err = %v, expected ConfigurationError", err)
	}
	if len(fx.runs.runs) != 0 {
		t.Error("configuration errors must not create a run row")
	}
}

func TestRequestRunMissingSourceCategory(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeProducts)
	task.SourceCategoryID = ""

	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); !errors.Is(err, ErrMissingSourceCategory) {
		t.Fatalf("err = %v, expected ErrMissingSourceCategory", err)
	}
}

func TestRequestRunEnqueueFailure(t *testing.T) {
	fx := newDispatcherFixture()
	fx.queue.err = fmt.Errorf("broker unavailable")
	task := fx.addTask(models.ImportTypeCategories)
	task.RunInBackground = true

	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); err == nil {
		t.Fatal("expected error from failed enqueue")
	}

	// the orphaned run must not block the next attempt
	for _, run := range fx.runs.runs {
		if run.Status != models.ImportRunStatusFailed {
			t.Fatalf("run status = %s, expected failed after enqueue failure", run.Status)
		}
	}
	fx.queue.err = nil
	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); err != nil {
		t.Fatalf("retry after enqueue failure returned error: %v", err)
	}
}

func TestExecuteQueuedRejectionReleasesTask(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)
	task.RunInBackground = true

	run, err := fx.dispatcher.RequestRun(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RequestRun returned error: %v", err)
	}

	// task is deactivated while the job waits in the queue
	task.IsActive = false
	if err := fx.dispatcher.ExecuteQueued(context.Background(), task.ID, run.ID); !errors.Is(err, ErrTaskInactive) {
		t.Fatalf("ExecuteQueued err = %v, expected ErrTaskInactive", err)
	}

	stuck, _ := fx.runs.GetRun(context.Background(), run.ID)
	if stuck.Status != models.ImportRunStatusFailed {
		t.Fatalf("run status = %s, expected rejected queued run to be finalized as failed", stuck.Status)
	}
	if stuck.ErrorMessage == "" {
		t.Error("finalized run is missing the rejection reason")
	}

	// once reactivated the task must accept new runs
	task.IsActive = true
	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); err != nil {
		t.Fatalf("RequestRun after reactivation returned error: %v", err)
	}
}

func TestExecuteQueuedConfigurationErrorReleasesTask(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)
	task.RunInBackground = true

	run, err := fx.dispatcher.RequestRun(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("RequestRun returned error: %v", err)
	}

	// the listing template is removed while the job waits in the queue
	fx.ds.CategoryListingURL = ""
	err = fx.dispatcher.ExecuteQueued(context.Background(), task.ID, run.ID)
	var configErr *sourceclient.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("ExecuteQueued err = %v, expected ConfigurationError", err)
	}

	stuck, _ := fx.runs.GetRun(context.Background(), run.ID)
	if stuck.Status != models.ImportRunStatusFailed {
		t.Fatalf("run status = %s, expected rejected queued run to be finalized as failed", stuck.Status)
	}

	fx.ds.CategoryListingURL = "https://api.acme.test/categories"
	if _, err := fx.dispatcher.RequestRun(context.Background(), task.ID); err != nil {
		t.Fatalf("RequestRun after repair returned error: %v", err)
	}
}

func TestExecuteQueuedLostClaimKeepsRunUntouched(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)

	// another worker already claimed the run
	run := &models.ImportTaskRun{TaskID: task.ID, Status: models.ImportRunStatusRunning}
	fx.runs.CreateRun(context.Background(), run)

	if err := fx.dispatcher.ExecuteQueued(context.Background(), task.ID, run.ID); !errors.Is(err, ErrRunConflict) {
		t.Fatalf("ExecuteQueued err = %v, expected ErrRunConflict", err)
	}
	if run.Status != models.ImportRunStatusRunning {
		t.Errorf("run status = %s, a lost claim must not finalize the other worker's run", run.Status)
	}
}

func TestExecuteQueuedDuplicateDelivery(t *testing.T) {
	fx := newDispatcherFixture()
	task := fx.addTask(models.ImportTypeCategories)

	run := &models.ImportTaskRun{TaskID: task.ID, Status: models.ImportRunStatusCompleted}
	fx.runs.CreateRun(context.Background(), run)

	if err := fx.dispatcher.ExecuteQueued(context.Background(), task.ID, run.ID); err != nil {
		t.Fatalf("duplicate delivery returned error: %v", err)
	}
	if run.CreatedItems != 0 {
		t.Error("duplicate delivery must not reprocess the run")
	}
}

func TestExecuteQueuedRunsPendingRun(t *testing.T) {
	fx := newDispatcherFixture()
	fx.fetcher.categories = []sourceclient.RemoteCategory{
		{ID: sourceclient.FlexString("1"), Name: "Outdoors"},
	}
	task := fx.addTask(models.ImportTypeCategories)

	run := &models.ImportTaskRun{TaskID: task.ID, Status: models.ImportRunStatusPending}
	fx.runs.CreateRun(context.Background(), run)

	if err := fx.dispatcher.ExecuteQueued(context.Background(), task.ID, run.ID); err != nil {
		t.Fatalf("ExecuteQueued returned error: %v", err)
	}
	if run.Status != models.ImportRunStatusCompleted || run.CreatedItems != 1 {
		t.Errorf("run = %s created %d, expected completed with 1 item", run.Status, run.CreatedItems)
	}
}
