package repo

import (
	"context"
	"errors"

	"bazario/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository handles catalog data access for the import pipeline
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetSeller gets a seller by ID
func (r *CatalogRepository) GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// GetCurrency gets a currency by ID
func (r *CatalogRepository) GetCurrency(ctx context.Context, id uuid.UUID) (*models.Currency, error) {
	var currency models.Currency
	if err := r.db.WithContext(ctx).First(&currency, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &currency, nil
}

// GetCategory gets a category by ID
func (r *CatalogRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryBySource finds a category by its (data source, remote id)
// natural key. Returns (nil, nil) when no match exists.
func (r *CatalogRepository) FindCategoryBySource(ctx context.Context, dataSourceID uuid.UUID, externalID string) (*models.Category, error) {
	if externalID == "" {
		return nil, nil
	}
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("data_source_id = ? AND source_external_id = ?", dataSourceID, externalID).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryByName finds a category by name (case insensitive).
// Returns (nil, nil) when no match exists.
func (r *CatalogRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory creates a new category
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// UpdateCategory updates a category
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// FindProductBySource finds a seller's product by its (data source, remote id)
// natural key. Returns (nil, nil) when no match exists.
func (r *CatalogRepository) FindProductBySource(ctx context.Context, sellerID, dataSourceID uuid.UUID, externalID string) (*models.Product, error) {
	if externalID == "" {
		return nil, nil
	}
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND data_source_id = ? AND source_external_id = ?", sellerID, dataSourceID, externalID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByName finds a seller's product by name (case insensitive).
// Returns (nil, nil) when no match exists.
func (r *CatalogRepository) FindProductByName(ctx context.Context, sellerID uuid.UUID, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND LOWER(name) = LOWER(?)", sellerID, name).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a new product
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct updates a product
func (r *CatalogRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// AddProductMedia attaches media rows to a product
func (r *CatalogRepository) AddProductMedia(ctx context.Context, media []models.ProductMedia) error {
	if len(media) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&media).Error
}
