package db

import (
	"fmt"
	"log"
	"os"

	"bazario/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	config := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrate runs database migrations using GORM
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running GORM AutoMigrate...")

	// Create required extensions first
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	// Run GORM AutoMigrate with all models
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run GORM AutoMigrate: %w", err)
	}

	// Create any custom indexes that GORM might not handle automatically
	if err := createCustomIndexes(db); err != nil {
		log.Printf("Warning: Failed to create some custom indexes: %v", err)
	}

	log.Println("GORM AutoMigrate completed successfully")
	return nil
}

// createCustomIndexes creates any custom indexes that GORM might not handle
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// One running run per task; backs the pending->running CAS
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_import_task_runs_single_running ON import_task_runs(task_id) WHERE status = 'running'`,

		// Active runs lookup used by the dispatcher
		`CREATE INDEX IF NOT EXISTS idx_import_task_runs_task_status ON import_task_runs(task_id, status)`,

		// Natural key for imported categories (excluding records without a source id)
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_source_key ON categories(data_source_id, source_external_id) WHERE source_external_id != '' AND deleted_at IS NULL`,

		// Natural key for imported products, scoped per seller
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_source_key ON products(seller_id, data_source_id, source_external_id) WHERE source_external_id != '' AND deleted_at IS NULL`,

		// Name match fallback used when a record has no source id
		`CREATE INDEX IF NOT EXISTS idx_categories_lower_name ON categories(lower(name)) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller_lower_name ON products(seller_id, lower(name)) WHERE deleted_at IS NULL`,

		// Item ledger reads are always per run, optionally filtered by status
		`CREATE INDEX IF NOT EXISTS idx_import_task_items_run_status ON import_task_items(run_id, status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s - %v", idx, err)
		}
	}

	return nil
}

// SeedInitialData creates initial system data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var currencyCount int64
	if err := db.Model(&models.Currency{}).Count(&currencyCount).Error; err != nil {
		return fmt.Errorf("failed to check existing currencies: %w", err)
	}

	if currencyCount == 0 {
		currencies := []models.Currency{
			{Code: "BRL", Name: "Brazilian Real", Symbol: "R$"},
			{Code: "USD", Name: "US Dollar", Symbol: "$"},
			{Code: "EUR", Name: "Euro", Symbol: "€"},
		}
		if err := db.Create(&currencies).Error; err != nil {
			return fmt.Errorf("failed to seed currencies: %w", err)
		}
		log.Println("Default currencies created successfully")
	}

	return nil
}

// RunMigrations is the main migration function called from main.go
func RunMigrations(db *gorm.DB) error {
	log.Println("Starting database migrations...")

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	if err := SeedInitialData(db); err != nil {
		return fmt.Errorf("initial data seeding failed: %w", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}
