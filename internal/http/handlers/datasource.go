package handlers

import (
	"errors"
	"net/http"

	"bazario/internal/repo"
	"bazario/internal/services"
	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type DataSourceHandler struct {
	sources *repo.DataSourceRepository
	engine  *services.ImportEngine
}

func NewDataSourceHandler(sources *repo.DataSourceRepository, engine *services.ImportEngine) *DataSourceHandler {
	return &DataSourceHandler{
		sources: sources,
		engine:  engine,
	}
}

// List returns all registered data sources
func (h *DataSourceHandler) List(c echo.Context) error {
	sources, err := h.sources.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch data sources"})
	}
	return c.JSON(http.StatusOK, sources)
}

// GetByID returns a single data source
func (h *DataSourceHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid data source ID"})
	}

	source, err := h.sources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "data source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch data source"})
	}
	return c.JSON(http.StatusOK, source)
}

// Create registers a new data source
func (h *DataSourceHandler) Create(c echo.Context) error {
	var req models.CreateDataSourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	source := &models.DataSource{
		Name:                 req.Name,
		Slug:                 req.Slug,
		BaseURL:              req.BaseURL,
		CategoryListingURL:   req.CategoryListingURL,
		CategorySearchURL:    req.CategorySearchURL,
		ProductListingURL:    req.ProductListingURL,
		ProductByCategoryURL: req.ProductByCategoryURL,
		AuthType:             req.AuthType,
		AuthCredentials:      models.CredentialMap(req.AuthCredentials),
		DefaultCurrencyID:    req.DefaultCurrencyID,
		IsActive:             true,
	}
	if source.AuthType == "" {
		source.AuthType = models.AuthTypeNone
	}

	if err := h.sources.Create(c.Request().Context(), source); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, source)
}

// Update modifies an existing data source
func (h *DataSourceHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid data source ID"})
	}

	var req models.UpdateDataSourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	source, err := h.sources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "data source not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch data source"})
	}

	if req.Name != nil {
		source.Name = *req.Name
	}
	if req.BaseURL != nil {
		source.BaseURL = *req.BaseURL
	}
	if req.CategoryListingURL != nil {
		source.CategoryListingURL = *req.CategoryListingURL
	}
	if req.CategorySearchURL != nil {
		source.CategorySearchURL = *req.CategorySearchURL
	}
	if req.ProductListingURL != nil {
		source.ProductListingURL = *req.ProductListingURL
	}
	if req.ProductByCategoryURL != nil {
		source.ProductByCategoryURL = *req.ProductByCategoryURL
	}
	if req.AuthType != nil {
		source.AuthType = *req.AuthType
	}
	if req.AuthCredentials != nil {
		source.AuthCredentials = models.CredentialMap(req.AuthCredentials)
	}
	if req.DefaultCurrencyID != nil {
		source.DefaultCurrencyID = req.DefaultCurrencyID
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}

	if err := h.sources.Update(c.Request().Context(), source); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, source)
}

// Delete removes a data source
func (h *DataSourceHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid data source ID"})
	}

	if err := h.sources.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// PreviewCategories fetches the remote category listing without importing
func (h *DataSourceHandler) PreviewCategories(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid data source ID"})
	}

	preview, err := h.engine.PreviewCategories(c.Request().Context(), id)
	if err != nil {
		var configErr *sourceclient.ConfigurationError
		if errors.As(err, &configErr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": configErr.Error()})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "data source not found"})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, preview)
}

// RegisterRoutes registers data source routes
func (h *DataSourceHandler) RegisterRoutes(g *echo.Group) {
	sourceGroup := g.Group("/datasources")

	sourceGroup.GET("", h.List)
	sourceGroup.GET("/:id", h.GetByID)
	sourceGroup.POST("", h.Create)
	sourceGroup.PUT("/:id", h.Update)
	sourceGroup.DELETE("/:id", h.Delete)
	sourceGroup.GET("/:id/preview-categories", h.PreviewCategories)
}
