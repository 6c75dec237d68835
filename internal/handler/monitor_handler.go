// internal/handler/monitor_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

var errMonitorDisabled = errors.New("poll interval or station list not configured")

// MonitorHandler starts and stops background station polling
type MonitorHandler struct {
	monitor *service.MonitorService
	baseCtx context.Context
	logger  *utils.ServiceLogger
}

// NewMonitorHandler creates a monitor handler. Polling started over HTTP
// lives until baseCtx is done or it is stopped.
func NewMonitorHandler(baseCtx context.Context, monitor *service.MonitorService, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		baseCtx: baseCtx,
		logger:  utils.NewServiceLogger(logger, "monitor-handler"),
	}
}

// Start begins polling
// @Summary Start monitoring
// @Description Start polling PV and SV of the configured stations
// @Tags Monitor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{running=bool,rounds=int}} "Monitoring running"
// @Failure 409 {object} utils.APIResponse "Polling disabled by configuration"
// @Router /monitor/start [post]
func (h *MonitorHandler) Start(c *gin.Context) {
	if !h.monitor.Start(h.baseCtx) && !h.monitor.IsRunning() {
		utils.ErrorResponse(c, http.StatusConflict, "Monitoring disabled", errMonitorDisabled)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Monitoring running", h.state())
}

// Stop ends polling
// @Summary Stop monitoring
// @Description Stop polling; waits for a round in progress
// @Tags Monitor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{running=bool,rounds=int}} "Monitoring stopped"
// @Router /monitor/stop [post]
func (h *MonitorHandler) Stop(c *gin.Context) {
	h.monitor.Stop()
	utils.SuccessResponse(c, http.StatusOK, "Monitoring stopped", h.state())
}

func (h *MonitorHandler) state() gin.H {
	return gin.H{
		"running": h.monitor.IsRunning(),
		"rounds":  h.monitor.Rounds(),
	}
}
