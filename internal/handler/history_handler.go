// internal/handler/history_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparki-service/internal/model"
	"sparki-service/internal/repository"
	"sparki-service/internal/utils"
)

// HistoryHandler exposes the persisted command history
type HistoryHandler struct {
	commandRepo repository.CommandRepository
	logger      *utils.ServiceLogger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(commandRepo repository.CommandRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		commandRepo: commandRepo,
		logger:      utils.NewServiceLogger(logger, "history-handler"),
	}
}

// RegisterRoutes registers command history routes
func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/history")
	{
		history.GET("", h.ListCommands)
		history.GET("/stats", h.GetStats)
		history.GET("/:command_id", h.GetCommand)
		history.DELETE("/:command_id", h.DeleteCommand)
	}
}

// ListCommands lists recorded commands with filtering and pagination
func (h *HistoryHandler) ListCommands(c *gin.Context) {
	filter, err := parseCommandFilter(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid filter parameters", err)
		return
	}

	commands, total, err := h.commandRepo.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list command history", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list command history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command history retrieved", gin.H{
		"commands": commands,
		"total":    total,
		"page":     filter.Page,
		"per_page": filter.PerPage,
	})
}

// GetCommand fetches one recorded command
func (h *HistoryHandler) GetCommand(c *gin.Context) {
	id, err := uuid.Parse(c.Param("command_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command ID", err)
		return
	}

	command, err := h.commandRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Command not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command retrieved", command)
}

// DeleteCommand removes one recorded command
func (h *HistoryHandler) DeleteCommand(c *gin.Context) {
	id, err := uuid.Parse(c.Param("command_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command ID", err)
		return
	}

	if err := h.commandRepo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete command", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete command", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command deleted", nil)
}

// GetStats returns aggregate command statistics
func (h *HistoryHandler) GetStats(c *gin.Context) {
	filter := &repository.CommandStatsFilter{}

	if v := c.Query("robot_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid robot_id", err)
			return
		}
		filter.RobotID = &id
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid start_date", err)
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
		filter.EndDate = &t
	}

	stats, err := h.commandRepo.GetCommandStats(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to compute command stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute command stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command statistics retrieved", stats)
}

func parseCommandFilter(c *gin.Context) (*repository.CommandFilter, error) {
	filter := &repository.CommandFilter{
		Page:      1,
		PerPage:   50,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, errInvalidPage
		}
		filter.Page = page
	}
	if v := c.Query("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 500 {
			return nil, errInvalidPerPage
		}
		filter.PerPage = perPage
	}
	if v := c.Query("kind"); v != "" {
		kind := model.CommandKind(v)
		filter.Kind = &kind
	}
	if v := c.Query("status"); v != "" {
		status := model.CommandStatus(v)
		filter.Status = &status
	}
	if v := c.Query("robot_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filter.RobotID = &id
	}
	if v := c.Query("correlation_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		filter.CorrelationID = &id
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filter.EndDate = &t
	}
	if v := c.Query("sort_by"); v != "" {
		if !repository.IsSortableColumn(v) {
			return nil, errInvalidSortBy
		}
		filter.SortBy = v
	}
	if v := c.Query("sort_order"); v != "" {
		if v != "asc" && v != "desc" {
			return nil, errInvalidSortOrder
		}
		filter.SortOrder = v
	}

	return filter, nil
}

var (
	errInvalidPage      = errors.New("page must be a positive integer")
	errInvalidPerPage   = errors.New("per_page must be between 1 and 500")
	errInvalidSortBy    = errors.New("sort_by must be one of: created_at, duration_ms, kind, status")
	errInvalidSortOrder = errors.New("sort_order must be asc or desc")
)
