// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparki-service/internal/discovery"
	"sparki-service/internal/service"
	"sparki-service/internal/utils"
)

// DiscoveryHandler handles robot discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	discovery := router.Group("/discovery")
	{
		discovery.GET("/scan", h.ScanRobots)
		discovery.GET("/scanners", h.GetScanners)
	}
}

// ScanRobots probes the configured network ranges for listening bridges
func (h *DiscoveryHandler) ScanRobots(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	var robots []*discovery.DiscoveredRobot
	var err error
	if scanType == "all" {
		robots, err = h.discoveryService.Scan(c.Request.Context())
	} else {
		robots, err = h.discoveryService.ScanByType(c.Request.Context(), scanType)
	}
	if err != nil {
		h.logger.Error("Failed to scan for robots", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan for robots", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Robot scan completed", gin.H{
		"robots_found": len(robots),
		"robots":       robots,
	})
}

// GetScanners lists the registered scanner backends
func (h *DiscoveryHandler) GetScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved", gin.H{
		"scanners": h.discoveryService.AvailableScanners(),
	})
}
