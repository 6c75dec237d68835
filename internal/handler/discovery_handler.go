// internal/handler/discovery_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

// DiscoveryHandler handles port and station discovery requests
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

// ListPorts lists the host's serial ports
// @Summary List serial ports
// @Description Enumerate serial ports on the host; the configured port is flagged
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{ports_found=int,ports=[]discovery.DiscoveredPort}} "Port scan completed"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	ports, err := h.discoveryService.ScanPorts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to scan ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Port scan completed", gin.H{
		"ports_found": len(ports),
		"ports":       ports,
	})
}

// ScanStations finds responding station addresses
// @Summary Scan stations
// @Description Read PV from each address in a range and report which controllers answer
// @Tags Discovery
// @Produce json
// @Param from query int false "First address" default(1)
// @Param to query int false "Last address" default(10)
// @Param timeout query string false "Per-station timeout" default(300ms)
// @Success 200 {object} utils.APIResponse{data=object{responding=int,results=[]service.ScanResult}} "Scan completed"
// @Failure 400 {object} utils.APIResponse "Invalid range"
// @Failure 409 {object} utils.APIResponse "Link not connected"
// @Router /discovery/stations [get]
func (h *DiscoveryHandler) ScanStations(c *gin.Context) {
	req := &service.ScanRequest{From: 1, To: 10}

	var err error
	if v := c.Query("from"); v != "" {
		if req.From, err = strconv.Atoi(v); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid from", err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if req.To, err = strconv.Atoi(v); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid to", err)
			return
		}
	}
	if v := c.Query("timeout"); v != "" {
		if req.Timeout, err = time.ParseDuration(v); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid timeout", err)
			return
		}
	}

	results, err := h.discoveryService.ScanStations(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponse(c, StatusForError(err), "Station scan failed", err)
		return
	}

	responding := 0
	for _, r := range results {
		if r.Responded {
			responding++
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "Station scan completed", gin.H{
		"responding": responding,
		"results":    results,
	})
}
