// internal/handler/controller_handler.go
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"vx4-service/internal/middleware"
	"vx4-service/internal/model"
	"vx4-service/internal/protocol"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

// ControllerHandler handles controller and station HTTP requests
type ControllerHandler struct {
	controllerService *service.ControllerService
	logger            *utils.ServiceLogger
}

// NewControllerHandler creates a new controller handler
func NewControllerHandler(controllerService *service.ControllerService, logger *zap.Logger) *ControllerHandler {
	return &ControllerHandler{
		controllerService: controllerService,
		logger:            utils.NewServiceLogger(logger, "controller-handler"),
	}
}

// SetSVRequest is the body of a set-point change
type SetSVRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// GetStatus returns link state and transport counters
// @Summary Controller status
// @Description Get serial link parameters, connection state and transaction statistics
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ControllerStatus} "Controller status"
// @Router /controller [get]
func (h *ControllerHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Controller status retrieved", h.controllerService.Status())
}

// Connect opens the serial link
// @Summary Connect
// @Description Open the serial link to the controllers. Connecting an open link is a no-op.
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ControllerStatus} "Connected"
// @Failure 502 {object} utils.APIResponse "Port could not be opened"
// @Router /controller/connect [post]
func (h *ControllerHandler) Connect(c *gin.Context) {
	if err := h.controllerService.Connect(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to connect", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller connected", h.controllerService.Status())
}

// Disconnect closes the serial link
// @Summary Disconnect
// @Description Close the serial link. Waits for an exchange in progress.
// @Tags Controller
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ControllerStatus} "Disconnected"
// @Failure 502 {object} utils.APIResponse "Port could not be closed"
// @Router /controller/disconnect [post]
func (h *ControllerHandler) Disconnect(c *gin.Context) {
	if err := h.controllerService.Disconnect(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to disconnect", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Controller disconnected", h.controllerService.Status())
}

// ListStations returns the latest readings per station
// @Summary List stations
// @Description Latest PV and SV seen for the configured stations and any station read since startup
// @Tags Stations
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{stations=[]model.StationSnapshot}} "Station readings"
// @Router /stations [get]
func (h *ControllerHandler) ListStations(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Stations retrieved", gin.H{
		"stations": h.controllerService.Snapshots(),
	})
}

// ReadPV reads the process value of one station
// @Summary Read PV
// @Description Read the present (process) value of a station, in engineering units
// @Tags Stations
// @Produce json
// @Param station path int true "Station address (0-99)"
// @Success 200 {object} utils.APIResponse{data=model.Reading} "Process value"
// @Failure 400 {object} utils.APIResponse "Invalid station"
// @Failure 409 {object} utils.APIResponse "Link not connected"
// @Failure 502 {object} utils.APIResponse "Malformed or undecodable reply"
// @Failure 504 {object} utils.APIResponse "No reply in time"
// @Router /stations/{station}/pv [get]
func (h *ControllerHandler) ReadPV(c *gin.Context) {
	h.read(c, model.QuantityPV)
}

// ReadSV reads the set-point of one station
// @Summary Read SV
// @Description Read the set-point of a station, in engineering units
// @Tags Stations
// @Produce json
// @Param station path int true "Station address (0-99)"
// @Success 200 {object} utils.APIResponse{data=model.Reading} "Set-point"
// @Failure 400 {object} utils.APIResponse "Invalid station"
// @Failure 409 {object} utils.APIResponse "Link not connected"
// @Failure 502 {object} utils.APIResponse "Malformed or undecodable reply"
// @Failure 504 {object} utils.APIResponse "No reply in time"
// @Router /stations/{station}/sv [get]
func (h *ControllerHandler) ReadSV(c *gin.Context) {
	h.read(c, model.QuantitySV)
}

func (h *ControllerHandler) read(c *gin.Context, q model.Quantity) {
	station, ok := h.stationParam(c)
	if !ok {
		return
	}

	read := h.controllerService.ReadPV
	if q == model.QuantitySV {
		read = h.controllerService.ReadSV
	}

	reading, err := read(c.Request.Context(), station)
	if err != nil {
		h.respondError(c, fmt.Sprintf("Failed to read %s", q), err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, fmt.Sprintf("%s read successfully", q), reading)
}

// SetSV changes the set-point of one station
// @Summary Set SV
// @Description Write a new set-point. Values are rounded to one decimal and clamped to 0..6553.5.
// @Tags Stations
// @Accept json
// @Produce json
// @Param station path int true "Station address (0-99)"
// @Param request body SetSVRequest true "New set-point"
// @Success 200 {object} utils.APIResponse{data=object{station=int,value=number}} "Set-point acknowledged"
// @Failure 400 {object} utils.APIResponse "Invalid station or value"
// @Failure 409 {object} utils.APIResponse "Link not connected"
// @Failure 502 {object} utils.APIResponse "Controller did not acknowledge"
// @Failure 504 {object} utils.APIResponse "No reply in time"
// @Router /stations/{station}/sv [put]
func (h *ControllerHandler) SetSV(c *gin.Context) {
	station, ok := h.stationParam(c)
	if !ok {
		return
	}

	var req SetSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			utils.ValidationErrorResponse(c, fields)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.controllerService.SetSV(c.Request.Context(), station, *req.Value); err != nil {
		h.respondError(c, "Failed to set SV", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "SV set successfully", gin.H{
		"station": station,
		"value":   *req.Value,
	})
}

func (h *ControllerHandler) stationParam(c *gin.Context) (int, bool) {
	station, err := strconv.Atoi(c.Param("station"))
	if err != nil || station < 0 || station > 99 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid station address",
			fmt.Errorf("%w: %q", protocol.ErrInvalidStation, c.Param("station")))
		return 0, false
	}
	return station, true
}

func (h *ControllerHandler) respondError(c *gin.Context, message string, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		utils.LoggerWithRequestID(h.logger.Logger, c.GetString(middleware.RequestIDKey)).
			Warn(message, zap.String("error_kind", protocol.KindOf(err)), zap.Error(err))
	}
	utils.ErrorResponse(c, status, message, err)
}

// StatusForError maps protocol error kinds to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidStation), errors.Is(err, protocol.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, protocol.ErrCanceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrIO),
		errors.Is(err, protocol.ErrMalformedResponse),
		errors.Is(err, protocol.ErrDecodeFailure),
		errors.Is(err, protocol.ErrRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
