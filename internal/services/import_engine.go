package services

import (
	"context"
	"fmt"
	"time"

	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SourceStore loads data source configurations
type SourceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error)
}

// TaskStore loads import task configurations
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ImportTask, error)
}

// RunStore is the run/item ledger surface the engine writes to
type RunStore interface {
	CreateRun(ctx context.Context, run *models.ImportTaskRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ImportTaskRun, error)
	HasActiveRun(ctx context.Context, taskID uuid.UUID) (bool, error)
	StartRun(ctx context.Context, runID uuid.UUID) (bool, error)
	SaveRun(ctx context.Context, run *models.ImportTaskRun) error
	AppendItem(ctx context.Context, item *models.ImportTaskItem) error
}

// CatalogStore is the catalog write surface the import pipeline uses.
// Find methods return (nil, nil) when no match exists.
type CatalogStore interface {
	GetCurrency(ctx context.Context, id uuid.UUID) (*models.Currency, error)
	FindCategoryBySource(ctx context.Context, dataSourceID uuid.UUID, externalID string) (*models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	FindProductBySource(ctx context.Context, sellerID, dataSourceID uuid.UUID, externalID string) (*models.Product, error)
	FindProductByName(ctx context.Context, sellerID uuid.UUID, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	AddProductMedia(ctx context.Context, media []models.ProductMedia) error
}

// SourceFetcher performs the outbound HTTP fetch against a data source
type SourceFetcher interface {
	FetchCategories(ctx context.Context, ds *models.DataSource, opts sourceclient.FetchOptions) ([]sourceclient.RemoteCategory, error)
	FetchProducts(ctx context.Context, ds *models.DataSource, opts sourceclient.FetchOptions) ([]sourceclient.RemoteProduct, error)
}

// ImageMirror copies a remote image into object storage. Optional; the
// engine keeps the remote URL when no mirror is configured.
type ImageMirror interface {
	MirrorImage(ctx context.Context, imageURL string, productID uuid.UUID) (url string, s3Key string, err error)
}

// itemOutcome is the result of processing one remote record
type itemOutcome struct {
	status   models.ImportItemStatus
	entityID *uuid.UUID
	message  string
}

// ImportEngine executes import task runs: it fetches the remote payload,
// dispatches to the kind-specific mapper, upserts records into the local
// catalog and maintains the run/item ledgers.
type ImportEngine struct {
	sources SourceStore
	runs    RunStore
	catalog CatalogStore
	fetcher SourceFetcher
	mirror  ImageMirror
	log     zerolog.Logger
}

// NewImportEngine creates a new import engine. mirror may be nil.
func NewImportEngine(sources SourceStore, runs RunStore, catalog CatalogStore, fetcher SourceFetcher, mirror ImageMirror, log zerolog.Logger) *ImportEngine {
	return &ImportEngine{
		sources: sources,
		runs:    runs,
		catalog: catalog,
		fetcher: fetcher,
		mirror:  mirror,
		log:     log.With().Str("service", "import-engine").Logger(),
	}
}

// requestKind returns the endpoint kind an import type fetches from
func requestKind(importType models.ImportType) sourceclient.RequestKind {
	if importType == models.ImportTypeProducts {
		return sourceclient.KindProductByCategory
	}
	return sourceclient.KindCategoryListing
}

// Execute runs one import attempt. The run must be in pending status; the
// pending->running transition is a compare-and-swap, so a duplicate delivery
// of the same run is a no-op that returns ErrRunConflict.
//
// Configuration errors are returned before any network call and leave the
// run in pending. Fetch and unexpected processing errors mark the run failed;
// item rows written up to that point are kept. Per-record mapping failures
// never abort the run.
func (e *ImportEngine) Execute(ctx context.Context, task *models.ImportTask, run *models.ImportTaskRun) (err error) {
	tracer := otel.Tracer("bazario-importer")
	ctx, span := tracer.Start(ctx, "import.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("import.task_id", task.ID.String()),
		attribute.String("import.run_id", run.ID.String()),
		attribute.String("import.type", string(task.ImportType)),
	)

	if !task.IsActive {
		return ErrTaskInactive
	}

	ds, err := e.sources.GetByID(ctx, task.DataSourceID)
	if err != nil {
		return fmt.Errorf("failed to load data source: %w", err)
	}
	if !ds.IsActive {
		return &sourceclient.ConfigurationError{Reason: fmt.Sprintf("data source %s is inactive", ds.Slug)}
	}
	if err := sourceclient.Validate(ds, requestKind(task.ImportType)); err != nil {
		return err
	}
	if task.ImportType == models.ImportTypeProducts && !task.HasSourceCategory() {
		return ErrMissingSourceCategory
	}

	started, err := e.runs.StartRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	if !started {
		return ErrRunConflict
	}
	now := time.Now()
	run.Status = models.ImportRunStatusRunning
	run.StartedAt = &now

	e.log.Info().
		Str("task_id", task.ID.String()).
		Str("run_id", run.ID.String()).
		Str("source", ds.Slug).
		Str("type", string(task.ImportType)).
		Msg("Import run started")

	// A mapper defect must not leave the run stuck in running forever,
	// and the synchronous caller must see the failure like any other
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().
				Str("run_id", run.ID.String()).
				Interface("panic", rec).
				Msg("Import run panicked")
			e.failRun(ctx, run, fmt.Sprintf("unexpected error: %v", rec))
			err = fmt.Errorf("import run panicked: %v", rec)
		}
	}()

	opts := sourceclient.FetchOptions{
		CategoryID:   task.SourceCategoryID,
		CategoryName: task.SourceCategoryName,
		PageSize:     task.Settings.PageSize,
		Strict:       task.Settings.StrictPayload,
	}

	switch task.ImportType {
	case models.ImportTypeCategories:
		records, err := e.fetcher.FetchCategories(ctx, ds, opts)
		if err != nil {
			e.failRun(ctx, run, err.Error())
			return err
		}
		e.importCategories(ctx, ds, task, run, records)
	case models.ImportTypeProducts:
		records, err := e.fetcher.FetchProducts(ctx, ds, opts)
		if err != nil {
			e.failRun(ctx, run, err.Error())
			return err
		}
		e.importProducts(ctx, ds, task, run, records)
	default:
		e.failRun(ctx, run, fmt.Sprintf("unknown import type %q", task.ImportType))
		return fmt.Errorf("unknown import type %q", task.ImportType)
	}

	e.completeRun(ctx, run)
	return nil
}

// recordItem writes one item ledger row and bumps the run counters.
// Item rows are written in source order and never edited afterwards.
func (e *ImportEngine) recordItem(ctx context.Context, run *models.ImportTaskRun, sourceID, sourceName string, out itemOutcome) {
	item := &models.ImportTaskItem{
		RunID:      run.ID,
		Status:     out.status,
		EntityID:   out.entityID,
		SourceID:   sourceID,
		SourceName: sourceName,
		Message:    out.message,
	}
	if err := e.runs.AppendItem(ctx, item); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to write item ledger row")
	}

	switch out.status {
	case models.ImportItemStatusCreated:
		run.CreatedItems++
	case models.ImportItemStatusUpdated:
		run.UpdatedItems++
	case models.ImportItemStatusSkipped:
		run.SkippedItems++
	case models.ImportItemStatusFailed:
		run.FailedItems++
	}
	run.ProcessedItems++

	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to update run counters")
	}
}

// completeRun transitions the run to its terminal completed status
func (e *ImportEngine) completeRun(ctx context.Context, run *models.ImportTaskRun) {
	now := time.Now()
	run.Status = models.ImportRunStatusCompleted
	run.CompletedAt = &now
	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to finalize run")
		return
	}
	e.log.Info().
		Str("run_id", run.ID.String()).
		Int("total", run.TotalItems).
		Int("created", run.CreatedItems).
		Int("updated", run.UpdatedItems).
		Int("skipped", run.SkippedItems).
		Int("failed", run.FailedItems).
		Msg("Import run completed")
}

// failRun transitions the run to its terminal failed status. Item rows
// already written are kept.
func (e *ImportEngine) failRun(ctx context.Context, run *models.ImportTaskRun, message string) {
	if run.Finished() {
		return
	}
	now := time.Now()
	run.Status = models.ImportRunStatusFailed
	run.CompletedAt = &now
	run.ErrorMessage = message
	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to finalize run")
		return
	}
	e.log.Warn().
		Str("run_id", run.ID.String()).
		Str("error", message).
		Msg("Import run failed")
}

// CategoryPreview is one remote category as shown to an operator picking a
// target mapping. Fetch and parse only; nothing is written.
type CategoryPreview struct {
	ExternalID       string `json:"external_id"`
	Name             string `json:"name"`
	ParentExternalID string `json:"parent_external_id,omitempty"`
}

// PreviewCategories fetches and flattens the category listing of a data
// source without writing anything.
func (e *ImportEngine) PreviewCategories(ctx context.Context, dataSourceID uuid.UUID) ([]CategoryPreview, error) {
	ds, err := e.sources.GetByID(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load data source: %w", err)
	}
	if err := sourceclient.Validate(ds, sourceclient.KindCategoryListing); err != nil {
		return nil, err
	}

	records, err := e.fetcher.FetchCategories(ctx, ds, sourceclient.FetchOptions{})
	if err != nil {
		return nil, err
	}

	flat := flattenCategories(records)
	preview := make([]CategoryPreview, 0, len(flat))
	for _, rec := range flat {
		preview = append(preview, CategoryPreview{
			ExternalID:       rec.ExternalID,
			Name:             rec.Name,
			ParentExternalID: rec.ParentExternalID,
		})
	}
	return preview, nil
}
