package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportType defines what kind of records a task pulls from its data source
type ImportType string

const (
	ImportTypeCategories ImportType = "categories"
	ImportTypeProducts   ImportType = "products"
)

// ImportRunStatus is the lifecycle status of one execution attempt
type ImportRunStatus string

const (
	ImportRunStatusPending   ImportRunStatus = "pending"
	ImportRunStatusRunning   ImportRunStatus = "running"
	ImportRunStatusCompleted ImportRunStatus = "completed"
	ImportRunStatusFailed    ImportRunStatus = "failed"
)

// ImportItemStatus is the outcome of processing one remote record
type ImportItemStatus string

const (
	ImportItemStatusCreated ImportItemStatus = "created"
	ImportItemStatusUpdated ImportItemStatus = "updated"
	ImportItemStatusSkipped ImportItemStatus = "skipped"
	ImportItemStatusFailed  ImportItemStatus = "failed"
)

// ImportSettings holds per-task tunables, stored as a jsonb column.
// Only the fields below are recognized; unknown keys are dropped on save.
type ImportSettings struct {
	// PageSize is forwarded to the remote listing endpoint when > 0.
	PageSize int `json:"page_size,omitempty"`
	// StrictPayload fails the run when the expected payload key is missing
	// instead of treating it as an empty result set.
	StrictPayload bool `json:"strict_payload,omitempty"`
	// MirrorImages copies remote product images into object storage.
	MirrorImages bool `json:"mirror_images,omitempty"`
	// DefaultStock is applied when the remote record carries no stock figure.
	DefaultStock int `json:"default_stock,omitempty"`
}

// Value implements driver.Valuer
func (s ImportSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *ImportSettings) Scan(value interface{}) error {
	if value == nil {
		*s = ImportSettings{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported settings type %T", value)
	}
}

// ImportTask is a saved job definition binding a data source to a seller
// account, an import kind and an optional source category selector.
type ImportTask struct {
	BaseModel
	DataSourceID       uuid.UUID      `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"data_source_id"`
	SellerID           uuid.UUID      `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"seller_id"`
	Name               string         `gorm:"not null" json:"name" validate:"required"`
	ImportType         ImportType     `gorm:"not null" json:"import_type"`
	SourceCategoryID   string         `json:"source_category_id"`
	SourceCategoryName string         `json:"source_category_name"`
	TargetCategoryID   *uuid.UUID     `gorm:"type:uuid" json:"target_category_id"`
	RunInBackground    bool           `gorm:"default:false" json:"run_in_background"`
	Settings           ImportSettings `gorm:"type:jsonb" json:"settings"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
}

// HasSourceCategory reports whether the task can resolve a remote category
// to pull products from.
func (t *ImportTask) HasSourceCategory() bool {
	return t.SourceCategoryID != "" || t.SourceCategoryName != ""
}

// ImportTaskRun records one execution attempt of an import task.
// Rows are engine-owned and never mutated once the run is terminal.
type ImportTaskRun struct {
	BaseModel
	TaskID         uuid.UUID       `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"task_id"`
	Status         ImportRunStatus `gorm:"not null;default:'pending'" json:"status"`
	TotalItems     int             `gorm:"default:0" json:"total_items"`
	ProcessedItems int             `gorm:"default:0" json:"processed_items"`
	CreatedItems   int             `gorm:"default:0" json:"created_items"`
	UpdatedItems   int             `gorm:"default:0" json:"updated_items"`
	SkippedItems   int             `gorm:"default:0" json:"skipped_items"`
	FailedItems    int             `gorm:"default:0" json:"failed_items"`
	StartedAt      *time.Time      `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// Finished reports whether the run reached a terminal status
func (r *ImportTaskRun) Finished() bool {
	return r.Status == ImportRunStatusCompleted || r.Status == ImportRunStatusFailed
}

// Progress calculates the percentual progress of the run
func (r *ImportTaskRun) Progress() float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(r.ProcessedItems) / float64(r.TotalItems) * 100
}

// ImportTaskItem is the outcome of processing one remote record within a run.
// Rows are append-only; a retry is a new run with its own item rows.
type ImportTaskItem struct {
	BaseModel
	RunID      uuid.UUID        `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"run_id"`
	Status     ImportItemStatus `gorm:"not null" json:"status"`
	EntityID   *uuid.UUID       `gorm:"type:uuid" json:"entity_id"`
	SourceID   string           `gorm:"index" json:"source_id"`
	SourceName string           `json:"source_name"`
	Message    string           `json:"message,omitempty"`
}

// ImportRunProgress is the API representation of a run's progress
type ImportRunProgress struct {
	RunID          uuid.UUID       `json:"run_id"`
	Status         ImportRunStatus `json:"status"`
	TotalItems     int             `json:"total_items"`
	ProcessedItems int             `json:"processed_items"`
	CreatedItems   int             `json:"created_items"`
	UpdatedItems   int             `json:"updated_items"`
	SkippedItems   int             `json:"skipped_items"`
	FailedItems    int             `json:"failed_items"`
	Progress       float64         `json:"progress"` // 0-100
	Message        string          `json:"message"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// ToProgress converts a run to its progress representation
func (r *ImportTaskRun) ToProgress() ImportRunProgress {
	return ImportRunProgress{
		RunID:          r.ID,
		Status:         r.Status,
		TotalItems:     r.TotalItems,
		ProcessedItems: r.ProcessedItems,
		CreatedItems:   r.CreatedItems,
		UpdatedItems:   r.UpdatedItems,
		SkippedItems:   r.SkippedItems,
		FailedItems:    r.FailedItems,
		Progress:       r.Progress(),
		ErrorMessage:   r.ErrorMessage,
	}
}

// CreateImportTaskRequest is the payload for creating an import task
type CreateImportTaskRequest struct {
	DataSourceID       uuid.UUID      `json:"data_source_id" validate:"required"`
	SellerID           uuid.UUID      `json:"seller_id" validate:"required"`
	Name               string         `json:"name" validate:"required"`
	ImportType         ImportType     `json:"import_type" validate:"required,oneof=categories products"`
	SourceCategoryID   string         `json:"source_category_id"`
	SourceCategoryName string         `json:"source_category_name"`
	TargetCategoryID   *uuid.UUID     `json:"target_category_id"`
	RunInBackground    bool           `json:"run_in_background"`
	Settings           ImportSettings `json:"settings"`
}

// UpdateImportTaskRequest is the payload for updating an import task.
// ImportType is fixed for the task's lifetime and cannot be changed here.
type UpdateImportTaskRequest struct {
	Name               *string         `json:"name"`
	SourceCategoryID   *string         `json:"source_category_id"`
	SourceCategoryName *string         `json:"source_category_name"`
	TargetCategoryID   *uuid.UUID      `json:"target_category_id"`
	RunInBackground    *bool           `json:"run_in_background"`
	Settings           *ImportSettings `json:"settings"`
	IsActive           *bool           `json:"is_active"`
}
