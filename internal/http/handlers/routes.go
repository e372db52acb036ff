package handlers

import (
	"bazario/internal/app"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	dataSourceHandler := NewDataSourceHandler(services.DataSourceRepo, services.ImportEngine)
	dataSourceHandler.RegisterRoutes(api)

	importTaskHandler := NewImportTaskHandler(services.ImportTaskRepo, services.ImportRunRepo, services.ImportDispatcher)
	importTaskHandler.RegisterRoutes(api)
}
