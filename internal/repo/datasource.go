package repo

import (
	"context"

	"bazario/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DataSourceRepository handles data source configuration access
type DataSourceRepository struct {
	db *gorm.DB
}

// NewDataSourceRepository creates a new data source repository
func NewDataSourceRepository(db *gorm.DB) *DataSourceRepository {
	return &DataSourceRepository{db: db}
}

// GetByID gets a data source by ID
func (r *DataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	var source models.DataSource
	if err := r.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// GetBySlug gets a data source by its unique slug
func (r *DataSourceRepository) GetBySlug(ctx context.Context, slug string) (*models.DataSource, error) {
	var source models.DataSource
	if err := r.db.WithContext(ctx).First(&source, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// List lists all data sources ordered by name
func (r *DataSourceRepository) List(ctx context.Context) ([]models.DataSource, error) {
	var sources []models.DataSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// Create creates a new data source
func (r *DataSourceRepository) Create(ctx context.Context, source *models.DataSource) error {
	return r.db.WithContext(ctx).Create(source).Error
}

// Update updates a data source
func (r *DataSourceRepository) Update(ctx context.Context, source *models.DataSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}

// Delete soft deletes a data source
func (r *DataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DataSource{}, "id = ?", id).Error
}
