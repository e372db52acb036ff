package repo

import (
	"context"
	"time"

	"bazario/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportTaskRepository handles import task configuration access
type ImportTaskRepository struct {
	db *gorm.DB
}

// NewImportTaskRepository creates a new import task repository
func NewImportTaskRepository(db *gorm.DB) *ImportTaskRepository {
	return &ImportTaskRepository{db: db}
}

// GetByID gets an import task by ID
func (r *ImportTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportTask, error) {
	var task models.ImportTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List lists import tasks with pagination
func (r *ImportTaskRepository) List(ctx context.Context, page, limit int) (*models.PaginationResult[models.ImportTask], error) {
	var tasks []models.ImportTask
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.ImportTask{}).Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationResult[models.ImportTask]{
		Data:       tasks,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// Create creates a new import task
func (r *ImportTaskRepository) Create(ctx context.Context, task *models.ImportTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update updates an import task
func (r *ImportTaskRepository) Update(ctx context.Context, task *models.ImportTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// ImportRunRepository handles the run and item ledgers. Run rows only ever
// move forward (pending -> running -> completed/failed) and item rows are
// append-only.
type ImportRunRepository struct {
	db *gorm.DB
}

// NewImportRunRepository creates a new import run repository
func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// CreateRun creates a new pending run for a task
func (r *ImportRunRepository) CreateRun(ctx context.Context, run *models.ImportTaskRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetRun gets a run by ID
func (r *ImportRunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportTaskRun, error) {
	var run models.ImportTaskRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// HasActiveRun reports whether the task has a run in a non-terminal status
func (r *ImportRunRepository) HasActiveRun(ctx context.Context, taskID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ImportTaskRun{}).
		Where("task_id = ? AND status IN ?", taskID, []models.ImportRunStatus{
			models.ImportRunStatusPending,
			models.ImportRunStatusRunning,
		}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// StartRun transitions a run from pending to running. The conditional update
// makes the transition a compare-and-swap: a second delivery of the same run
// finds zero affected rows and reports false. The partial unique index on
// (task_id) WHERE status = 'running' backs this across processes.
func (r *ImportRunRepository) StartRun(ctx context.Context, runID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.ImportTaskRun{}).
		Where("id = ? AND status = ?", runID, models.ImportRunStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ImportRunStatusRunning,
			"started_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SaveRun persists the run's counters and status
func (r *ImportRunRepository) SaveRun(ctx context.Context, run *models.ImportTaskRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// AppendItem writes one item ledger row
func (r *ImportRunRepository) AppendItem(ctx context.Context, item *models.ImportTaskItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ListRuns lists runs of a task, newest first
func (r *ImportRunRepository) ListRuns(ctx context.Context, taskID uuid.UUID, page, limit int) (*models.PaginationResult[models.ImportTaskRun], error) {
	var runs []models.ImportTaskRun
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ImportTaskRun{}).Where("task_id = ?", taskID)
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationResult[models.ImportTaskRun]{
		Data:       runs,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}

// ListItems lists the item rows of a run in write order, with an optional
// status filter for triaging partial failures.
func (r *ImportRunRepository) ListItems(ctx context.Context, runID uuid.UUID, status string, page, limit int) (*models.PaginationResult[models.ImportTaskItem], error) {
	var items []models.ImportTaskItem
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ImportTaskItem{}).Where("run_id = ?", runID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationResult[models.ImportTaskItem]{
		Data:       items,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}, nil
}
