package models

import (
	"github.com/google/uuid"
)

// Seller represents a seller account that owns products in the marketplace
type Seller struct {
	BaseModel
	Name     string `gorm:"not null" json:"name" validate:"required"`
	Email    string `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// Currency represents a currency accepted by the marketplace
type Currency struct {
	BaseModel
	Code   string `gorm:"type:varchar(3);uniqueIndex;not null" json:"code" validate:"required,len=3"`
	Name   string `gorm:"not null" json:"name"`
	Symbol string `json:"symbol"`
}

// Category represents a product category
//
// DataSourceID/SourceExternalID track the remote record a category was
// imported from, so re-imports can match it by natural key.
type Category struct {
	BaseModel
	Name             string     `gorm:"not null" json:"name" validate:"required"`
	Description      string     `json:"description"`
	ParentID         *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"parent_id"`
	Image            string     `json:"image"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	SortOrder        int        `gorm:"default:0" json:"sort_order"`
	DataSourceID     *uuid.UUID `gorm:"type:uuid;index" json:"data_source_id,omitempty"`
	SourceExternalID string     `gorm:"index" json:"source_external_id,omitempty"`
}

// Product represents a product in the catalog
type Product struct {
	BaseModel
	SellerID         uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"seller_id"`
	CategoryID       *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"category_id"`
	Name             string     `gorm:"not null" json:"name" validate:"required"`
	Description      string     `json:"description"`
	Price            string     `gorm:"not null" json:"price" validate:"required"` // decimal string, source currency
	Currency         string     `gorm:"type:varchar(3)" json:"currency"`
	SKU              string     `json:"sku"`
	StockQuantity    int        `gorm:"default:0" json:"stock_quantity"`
	SortOrder        int        `gorm:"default:0" json:"sort_order"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	DataSourceID     *uuid.UUID `gorm:"type:uuid;index" json:"data_source_id,omitempty"`
	SourceExternalID string     `gorm:"index" json:"source_external_id,omitempty"`
}

// ProductMedia represents media files associated with a product
type ProductMedia struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"product_id"`
	Type      string    `gorm:"not null" json:"type"` // image, video
	URL       string    `gorm:"not null" json:"url"`
	S3Key     string    `json:"s3_key"`
	Alt       string    `json:"alt"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
}
