package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AuthType defines how requests against a data source are authenticated
type AuthType string

const (
	AuthTypeNone        AuthType = "none"
	AuthTypeAPIKey      AuthType = "api_key"
	AuthTypeBearerToken AuthType = "bearer_token"
)

// Credential keys expected in DataSource.AuthCredentials per auth type.
const (
	CredentialAPIKey      = "api_key"
	CredentialBearerToken = "bearer_token"
)

// CredentialMap holds data source secrets as a jsonb column
type CredentialMap map[string]string

// Value implements driver.Valuer
func (m CredentialMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *CredentialMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported credential map type %T", value)
	}
}

// DataSource represents an external catalog provider configuration
//
// Endpoint templates are joined with BaseURL to build absolute request URLs.
// Placeholders {category_id} and {category_name} are substituted from the
// import task's source selector.
type DataSource struct {
	BaseModel
	Name                 string        `gorm:"not null" json:"name" validate:"required"`
	Slug                 string        `gorm:"uniqueIndex;not null" json:"slug" validate:"required"`
	BaseURL              string        `gorm:"not null" json:"base_url" validate:"required,url"`
	CategoryListingURL   string        `gorm:"not null" json:"category_listing_url" validate:"required"`
	CategorySearchURL    string        `json:"category_search_url"`
	ProductListingURL    string        `json:"product_listing_url"`
	ProductByCategoryURL string        `gorm:"not null" json:"product_by_category_url" validate:"required"`
	AuthType             AuthType      `gorm:"not null;default:'none'" json:"auth_type"`
	AuthCredentials      CredentialMap `gorm:"type:jsonb" json:"auth_credentials,omitempty"`
	DefaultCurrencyID    *uuid.UUID    `gorm:"type:uuid" json:"default_currency_id"`
	IsActive             bool          `gorm:"default:true" json:"is_active"`
}

// CreateDataSourceRequest is the payload for creating a data source
type CreateDataSourceRequest struct {
	Name                 string            `json:"name" validate:"required"`
	Slug                 string            `json:"slug" validate:"required"`
	BaseURL              string            `json:"base_url" validate:"required,url"`
	CategoryListingURL   string            `json:"category_listing_url" validate:"required"`
	CategorySearchURL    string            `json:"category_search_url"`
	ProductListingURL    string            `json:"product_listing_url"`
	ProductByCategoryURL string            `json:"product_by_category_url" validate:"required"`
	AuthType             AuthType          `json:"auth_type" validate:"omitempty,oneof=none api_key bearer_token"`
	AuthCredentials      map[string]string `json:"auth_credentials"`
	DefaultCurrencyID    *uuid.UUID        `json:"default_currency_id"`
}

// UpdateDataSourceRequest is the payload for updating a data source
type UpdateDataSourceRequest struct {
	Name                 *string           `json:"name"`
	BaseURL              *string           `json:"base_url" validate:"omitempty,url"`
	CategoryListingURL   *string           `json:"category_listing_url"`
	CategorySearchURL    *string           `json:"category_search_url"`
	ProductListingURL    *string           `json:"product_listing_url"`
	ProductByCategoryURL *string           `json:"product_by_category_url"`
	AuthType             *AuthType         `json:"auth_type" validate:"omitempty,oneof=none api_key bearer_token"`
	AuthCredentials      map[string]string `json:"auth_credentials"`
	DefaultCurrencyID    *uuid.UUID        `json:"default_currency_id"`
	IsActive             *bool             `json:"is_active"`
}
