package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bazario/internal/repo"
	"bazario/internal/services"
	"bazario/internal/sourceclient"
	"bazario/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ImportTaskHandler struct {
	tasks      *repo.ImportTaskRepository
	runs       *repo.ImportRunRepository
	dispatcher *services.ImportDispatcher
}

func NewImportTaskHandler(tasks *repo.ImportTaskRepository, runs *repo.ImportRunRepository, dispatcher *services.ImportDispatcher) *ImportTaskHandler {
	return &ImportTaskHandler{
		tasks:      tasks,
		runs:       runs,
		dispatcher: dispatcher,
	}
}

func paginationParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// List returns import tasks, paginated
func (h *ImportTaskHandler) List(c echo.Context) error {
	page, limit := paginationParams(c)

	result, err := h.tasks.List(c.Request().Context(), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch import tasks"})
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID returns a single import task
func (h *ImportTaskHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid import task ID"})
	}

	task, err := h.tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import task not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch import task"})
	}
	return c.JSON(http.StatusOK, task)
}

// Create registers a new import task
func (h *ImportTaskHandler) Create(c echo.Context) error {
	var req models.CreateImportTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	task := &models.ImportTask{
		Name:               req.Name,
		DataSourceID:       req.DataSourceID,
		SellerID:           req.SellerID,
		ImportType:         req.ImportType,
		SourceCategoryID:   req.SourceCategoryID,
		SourceCategoryName: req.SourceCategoryName,
		TargetCategoryID:   req.TargetCategoryID,
		RunInBackground:    req.RunInBackground,
		Settings:           req.Settings,
		IsActive:           true,
	}
	if task.ImportType == models.ImportTypeProducts && !task.HasSourceCategory() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "product imports require a source category selector"})
	}

	if err := h.tasks.Create(c.Request().Context(), task); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, task)
}

// Update modifies an existing import task
func (h *ImportTaskHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid import task ID"})
	}

	var req models.UpdateImportTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	task, err := h.tasks.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import task not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch import task"})
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.SourceCategoryID != nil {
		task.SourceCategoryID = *req.SourceCategoryID
	}
	if req.SourceCategoryName != nil {
		task.SourceCategoryName = *req.SourceCategoryName
	}
	if req.TargetCategoryID != nil {
		task.TargetCategoryID = req.TargetCategoryID
	}
	if req.RunInBackground != nil {
		task.RunInBackground = *req.RunInBackground
	}
	if req.Settings != nil {
		task.Settings = *req.Settings
	}
	if req.IsActive != nil {
		task.IsActive = *req.IsActive
	}
	if task.ImportType == models.ImportTypeProducts && !task.HasSourceCategory() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "product imports require a source category selector"})
	}

	if err := h.tasks.Update(c.Request().Context(), task); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, task)
}

// Run starts a run for the task. Background tasks return 202 with the
// pending run, inline tasks return 200 with the finished run.
func (h *ImportTaskHandler) Run(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid import task ID"})
	}

	run, err := h.dispatcher.RequestRun(c.Request().Context(), id)
	if err != nil {
		var configErr *sourceclient.ConfigurationError
		switch {
		case errors.Is(err, services.ErrRunConflict):
			return c.JSON(http.StatusConflict, map[string]string{"error": "task already has an active run"})
		case errors.Is(err, services.ErrTaskInactive):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "import task is inactive"})
		case errors.Is(err, services.ErrMissingSourceCategory):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "product imports require a source category selector"})
		case errors.As(err, &configErr):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": configErr.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "import task not found"})
		}
		if run != nil {
			// inline run finished in failed status; the run carries the error
			return c.JSON(http.StatusOK, run)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if run.Status == models.ImportRunStatusPending {
		return c.JSON(http.StatusAccepted, run)
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns returns the task's run history, newest first
func (h *ImportTaskHandler) ListRuns(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid import task ID"})
	}
	page, limit := paginationParams(c)

	result, err := h.runs.ListRuns(c.Request().Context(), id, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch runs"})
	}
	return c.JSON(http.StatusOK, result)
}

// GetRun returns one run with progress counters
func (h *ImportTaskHandler) GetRun(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
	}

	run, err := h.runs.GetRun(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch run"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunProgress returns a compact progress view of one run
func (h *ImportTaskHandler) GetRunProgress(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
	}

	run, err := h.runs.GetRun(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch run"})
	}
	return c.JSON(http.StatusOK, run.ToProgress())
}

// ListRunItems returns the run's item ledger in write order
func (h *ImportTaskHandler) ListRunItems(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
	}
	page, limit := paginationParams(c)

	result, err := h.runs.ListItems(c.Request().Context(), runID, c.QueryParam("status"), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch run items"})
	}
	return c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers import task routes
func (h *ImportTaskHandler) RegisterRoutes(g *echo.Group) {
	taskGroup := g.Group("/import-tasks")

	taskGroup.GET("", h.List)
	taskGroup.GET("/:id", h.GetByID)
	taskGroup.POST("", h.Create)
	taskGroup.PUT("/:id", h.Update)
	taskGroup.POST("/:id/run", h.Run)
	taskGroup.GET("/:id/runs", h.ListRuns)

	runGroup := g.Group("/import-runs")
	runGroup.GET("/:run_id", h.GetRun)
	runGroup.GET("/:run_id/progress", h.GetRunProgress)
	runGroup.GET("/:run_id/items", h.ListRunItems)
}
