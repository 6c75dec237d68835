// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vx4-service/internal/config"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	controllerService *service.ControllerService
	config            *config.Config
	logger            *utils.ServiceLogger
	startedAt         time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(controllerService *service.ControllerService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		controllerService: controllerService,
		config:            config,
		logger:            utils.NewServiceLogger(logger, "health-handler"),
		startedAt:         time.Now(),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including the serial link
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy or degraded"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	status := h.controllerService.Status()
	if status.Connected {
		health.Checks["serial_link"] = CheckResult{
			Status:  "healthy",
			Message: "Serial link open",
		}
	} else {
		// the service still answers; only controller calls fail
		health.Status = "degraded"
		health.Checks["serial_link"] = CheckResult{
			Status:  "unhealthy",
			Message: "Serial link closed",
		}
	}

	health.Checks["serial_stats"] = CheckResult{
		Status: "healthy",
		Data: map[string]interface{}{
			"port":            status.Link.Port,
			"operations":      status.Stats.OperationCount,
			"errors":          status.Stats.ErrorCount,
			"timeouts":        status.Stats.TimeoutCount,
			"average_latency": status.Stats.AverageLatency.String(),
			"last_activity":   status.Stats.LastActivity,
		},
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness checks
// @Summary Readiness check
// @Description Ready when the serial link is open
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.controllerService.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "serial link not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness checks
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
