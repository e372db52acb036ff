package services

import (
	"context"
	"strconv"
	"strings"

	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
)

func (e *ImportEngine) importProducts(ctx context.Context, ds *models.DataSource, task *models.ImportTask, run *models.ImportTaskRun, records []sourceclient.RemoteProduct) {
	run.TotalItems = len(records)
	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to store total items")
	}

	var defaultCurrency string
	if ds.DefaultCurrencyID != nil {
		currency, err := e.catalog.GetCurrency(ctx, *ds.DefaultCurrencyID)
		if err != nil {
			e.log.Warn().Err(err).Str("source", ds.Slug).Msg("Failed to load default currency")
		} else {
			defaultCurrency = currency.Code
		}
	}

	for _, rec := range records {
		out := e.upsertProduct(ctx, ds, task, rec, defaultCurrency)
		e.recordItem(ctx, run, rec.ExternalID(), rec.Name, out)
	}
}

// mapProduct maps a remote record onto a local product. The second return
// value carries the rejection reason when the record is unusable.
func (e *ImportEngine) mapProduct(ctx context.Context, ds *models.DataSource, task *models.ImportTask, rec sourceclient.RemoteProduct, defaultCurrency string) (*models.Product, string) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, "product name is required"
	}

	price := strings.TrimSpace(rec.Price.String())
	if price == "" {
		return nil, "product price is required"
	}
	if _, err := strconv.ParseFloat(price, 64); err != nil {
		return nil, "invalid price " + strconv.Quote(price)
	}

	currency := strings.TrimSpace(rec.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	stock := task.Settings.DefaultStock
	if rec.Stock != nil {
		stock = *rec.Stock
	}

	categoryID := task.TargetCategoryID
	if categoryID == nil {
		categoryID = e.resolveProductCategory(ctx, ds, rec)
	}

	return &models.Product{
		SellerID:         task.SellerID,
		CategoryID:       categoryID,
		Name:             name,
		Description:      rec.Description,
		Price:            price,
		Currency:         currency,
		SKU:              rec.SKU,
		StockQuantity:    stock,
		IsActive:         true,
		DataSourceID:     &ds.ID,
		SourceExternalID: rec.ExternalID(),
	}, ""
}

// resolveProductCategory finds a local category matching the record's own
// category hints. Returns nil when nothing matches; products land uncategorized.
func (e *ImportEngine) resolveProductCategory(ctx context.Context, ds *models.DataSource, rec sourceclient.RemoteProduct) *uuid.UUID {
	if id := rec.CategoryID.String(); id != "" {
		category, err := e.catalog.FindCategoryBySource(ctx, ds.ID, id)
		if err == nil && category != nil {
			return &category.ID
		}
	}
	if name := strings.TrimSpace(rec.CategoryName); name != "" {
		category, err := e.catalog.FindCategoryByName(ctx, name)
		if err == nil && category != nil {
			return &category.ID
		}
	}
	return nil
}

func (e *ImportEngine) upsertProduct(ctx context.Context, ds *models.DataSource, task *models.ImportTask, rec sourceclient.RemoteProduct, defaultCurrency string) itemOutcome {
	mapped, reason := e.mapProduct(ctx, ds, task, rec, defaultCurrency)
	if reason != "" {
		return itemOutcome{status: models.ImportItemStatusFailed, message: reason}
	}

	var existing *models.Product
	var err error
	if externalID := rec.ExternalID(); externalID != "" {
		existing, err = e.catalog.FindProductBySource(ctx, task.SellerID, ds.ID, externalID)
		if err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "lookup failed: " + err.Error()}
		}
	}
	if existing == nil {
		existing, err = e.catalog.FindProductByName(ctx, task.SellerID, mapped.Name)
		if err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "lookup failed: " + err.Error()}
		}
	}

	if existing == nil {
		if err := e.catalog.CreateProduct(ctx, mapped); err != nil {
			return itemOutcome{status: models.ImportItemStatusFailed, message: "create failed: " + err.Error()}
		}
		e.attachProductImages(ctx, task, mapped, rec.Images)
		return itemOutcome{status: models.ImportItemStatusCreated, entityID: &mapped.ID}
	}

	changed := false
	if existing.Name != mapped.Name {
		existing.Name = mapped.Name
		changed = true
	}
	if mapped.Description != "" && existing.Description != mapped.Description {
		existing.Description = mapped.Description
		changed = true
	}
	if existing.Price != mapped.Price {
		existing.Price = mapped.Price
		changed = true
	}
	if mapped.Currency != "" && existing.Currency != mapped.Currency {
		existing.Currency = mapped.Currency
		changed = true
	}
	if mapped.SKU != "" && existing.SKU != mapped.SKU {
		existing.SKU = mapped.SKU
		changed = true
	}
	if existing.StockQuantity != mapped.StockQuantity {
		existing.StockQuantity = mapped.StockQuantity
		changed = true
	}
	if mapped.CategoryID != nil && !uuidPtrEqual(existing.CategoryID, mapped.CategoryID) {
		existing.CategoryID = mapped.CategoryID
		changed = true
	}
	// adopt the natural key when the record matched by name
	if mapped.SourceExternalID != "" && (existing.DataSourceID == nil || *existing.DataSourceID != ds.ID || existing.SourceExternalID != mapped.SourceExternalID) {
		existing.DataSourceID = &ds.ID
		existing.SourceExternalID = mapped.SourceExternalID
		changed = true
	}

	if !changed {
		return itemOutcome{status: models.ImportItemStatusSkipped, entityID: &existing.ID, message: "no changes"}
	}
	if err := e.catalog.UpdateProduct(ctx, existing); err != nil {
		return itemOutcome{status: models.ImportItemStatusFailed, message: "update failed: " + err.Error()}
	}
	return itemOutcome{status: models.ImportItemStatusUpdated, entityID: &existing.ID}
}

// attachProductImages stores the record's image URLs as product media.
// The pipeline never deletes, so media is only attached on create.
// Mirroring failures degrade to the remote URL.
func (e *ImportEngine) attachProductImages(ctx context.Context, task *models.ImportTask, product *models.Product, images []string) {
	media := make([]models.ProductMedia, 0, len(images))
	for i, imageURL := range images {
		imageURL = strings.TrimSpace(imageURL)
		if imageURL == "" {
			continue
		}

		url := imageURL
		s3Key := ""
		if task.Settings.MirrorImages && e.mirror != nil {
			mirrored, key, err := e.mirror.MirrorImage(ctx, imageURL, product.ID)
			if err != nil {
				e.log.Warn().Err(err).Str("product_id", product.ID.String()).Str("url", imageURL).Msg("Failed to mirror image, keeping remote URL")
			} else {
				url = mirrored
				s3Key = key
			}
		}

		media = append(media, models.ProductMedia{
			ProductID: product.ID,
			Type:      "image",
			URL:       url,
			S3Key:     s3Key,
			SortOrder: i,
		})
	}
	if len(media) == 0 {
		return
	}
	if err := e.catalog.AddProductMedia(ctx, media); err != nil {
		e.log.Error().Err(err).Str("product_id", product.ID.String()).Msg("Failed to store product media")
	}
}
