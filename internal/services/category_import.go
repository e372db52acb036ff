package services

import (
	"context"
	"strings"

	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
)

// maxCategoryDepth bounds tree traversal so a malformed payload with a
// cyclic or absurdly deep children graph cannot run away.
const maxCategoryDepth = 32

type flatCategory struct {
	ExternalID       string
	Name             string
	ParentExternalID string
}

// flattenCategories turns a nested remote category tree into a flat list in
// parents-before-children order. Records without an id are keyed by
// normalized name so they still dedupe; repeated keys are dropped.
func flattenCategories(roots []sourceclient.RemoteCategory) []flatCategory {
	type entry struct {
		record sourceclient.RemoteCategory
		parent string
		depth  int
	}

	queue := make([]entry, 0, len(roots))
	for _, root := range roots {
		queue = append(queue, entry{record: root, parent: root.ParentID.String()})
	}

	seen := make(map[string]bool)
	flat := make([]flatCategory, 0, len(queue))

	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		key := cur.record.ExternalID()
		if key == "" {
			key = "name:" + strings.ToLower(strings.TrimSpace(cur.record.Name))
		}
		if seen[key] || cur.depth >= maxCategoryDepth {
			continue
		}
		seen[key] = true

		flat = append(flat, flatCategory{
			ExternalID:       cur.record.ExternalID(),
			Name:             strings.TrimSpace(cur.record.Name),
			ParentExternalID: cur.parent,
		})
		for _, child := range cur.record.Children {
			queue = append(queue, entry{record: child, parent: cur.record.ExternalID(), depth: cur.depth + 1})
		}
	}
	return flat
}

func (e *ImportEngine) importCategories(ctx context.Context, ds *models.DataSource, task *models.ImportTask, run *models.ImportTaskRun, records []sourceclient.RemoteCategory) {
	flat := flattenCategories(records)
	run.TotalItems = len(flat)
	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to store total items")
	}

	// external id -> local category id, for records materialized this run
	materialized := make(map[string]uuid.UUID)
	for _, rec := range flat {
		out := e.upsertCategory(ctx, ds, task, rec, materialized)
		e.recordItem(ctx, run, rec.ExternalID, rec.Name, out)
	}
}

func (e *ImportEngine) upsertCategory(ctx context.Context, ds *models.DataSource, task *models.ImportTask, rec flatCategory, materialized map[string]uuid.UUID) itemOutcome {
	if rec.Name == "" {
		return itemOutcome{status: models.ImportItemStatusFailed, message: "category name is required"}
	}

	parentID := task.TargetCategoryID
	if rec.ParentExternalID != "" {
		if localID, ok := materialized[rec.ParentExternalID]; ok {
			id := localID
			parentID = &id
		}
	}

	var existing *models.Category
	var err error
	if rec.ExternalID != "" {
		existing, err = e.catalog.FindCategoryBySource(ctx, ds.ID, rec.ExternalID)
		if err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "lookup failed: " + err.Error()}
		}
	}
	if existing == nil {
		existing, err = e.catalog.FindCategoryByName(ctx, rec.Name)
		if err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "lookup failed: " + err.Error()}
		}
	}

	if existing == nil {
		category := &models.Category{
			Name:             rec.Name,
			ParentID:         parentID,
			IsActive:         true,
			DataSourceID:     &ds.ID,
			SourceExternalID: rec.ExternalID,
		}
		if err := e.catalog.CreateCategory(ctx, category); err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "create failed: " + err.Error()}
		}
		if rec.ExternalID != "" {
			materialized[rec.ExternalID] = category.ID
		}
		return itemOutcome{status: models.ImportItemStatusCreated, entityID: &category.ID}
	}

	if rec.ExternalID != "" {
		materialized[rec.ExternalID] = existing.ID
	}

	changed := false
	if existing.Name != rec.Name {
		existing.Name = rec.Name
		changed = true
	}
	if !uuidPtrEqual(existing.ParentID, parentID) {
		existing.ParentID = parentID
		changed = true
	}
	// adopt the natural key when the record matched by name
	if rec.ExternalID != "" && (existing.DataSourceID == nil || *existing.DataSourceID != ds.ID || existing.SourceExternalID != rec.ExternalID) {
		existing.DataSourceID = &ds.ID
		existing.SourceExternalID = rec.ExternalID
		changed = true
	}

	if !changed {
		return itemOutcome{status: models.ImportItemStatusSkipped, entityID: &existing.ID, message: "no changes"}
	}
	if err := e.catalog.UpdateCategory(ctx, existing); err != nil {
		return itemOutcome{status: models.ImportItemStatusFailed, message: "update failed: " + err.Error()}
	}
	return itemOutcome{status: models.ImportItemStatusUpdated, entityID: &existing.ID}
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
