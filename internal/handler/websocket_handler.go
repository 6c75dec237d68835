// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vx4-service/internal/config"
	"vx4-service/internal/model"
	"vx4-service/internal/protocol"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
	wsSendQueue  = 256

	wsCommandTimeout = 30 * time.Second
)

// WebSocketHandler manages WebSocket connections for real-time communication
type WebSocketHandler struct {
	upgrader          websocket.Upgrader
	connections       *ConnectionManager
	controllerService *service.ControllerService
	logger            *utils.ServiceLogger
	eventBus          *EventBus
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	controllerService *service.ControllerService,
	eventBus *EventBus,
	security *config.SecurityConfig,
	logger *zap.Logger,
) *WebSocketHandler {
	var origins []string
	if security != nil {
		origins = security.AllowedOrigins
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}

	return &WebSocketHandler{
		upgrader:          upgrader,
		connections:       NewConnectionManager(),
		controllerService: controllerService,
		logger:            utils.NewServiceLogger(logger, "websocket-handler"),
		eventBus:          eventBus,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Start subscribes to the event bus and forwards events to connected
// clients until ctx is done, then closes every client.
func (h *WebSocketHandler) Start(ctx context.Context) {
	events := h.eventBus.SubscribeAll()
	go h.forward(ctx, events)
}

func (h *WebSocketHandler) forward(ctx context.Context, events <-chan model.ControllerEvent) {
	defer h.eventBus.Unsubscribe(events)
	defer h.connections.CloseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(event)
		}
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.HandleEventConnection)
	router.GET("/stations/:station", h.HandleStationConnection)
}

// HandleEventConnection handles the all-stations event stream
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, ClientTypeEvents, nil)
	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type: "initial_status",
		Data: map[string]interface{}{
			"controller": h.controllerService.Status(),
			"stations":   h.controllerService.Snapshots(),
		},
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// HandleStationConnection handles a stream scoped to one station
func (h *WebSocketHandler) HandleStationConnection(c *gin.Context) {
	station, err := strconv.Atoi(c.Param("station"))
	if err != nil || station < 0 || station > 99 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid station address",
			fmt.Errorf("%w: %q", protocol.ErrInvalidStation, c.Param("station")))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, ClientTypeStation, &station)
	h.connections.Register(client)
	h.logger.Info("Station WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.Int("station", station),
		zap.String("remote_addr", client.RemoteAddr),
	)

	snapshot, _ := h.controllerService.Snapshot(station)
	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      snapshot,
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

func (h *WebSocketHandler) newClient(c *gin.Context, conn *websocket.Conn, clientType string, station *int) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, wsSendQueue),
		Type:        clientType,
		Station:     station,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "subscribe", "unsubscribe":
		h.handleSubscription(client, message)
	case "read_pv", "read_sv", "set_sv":
		go h.executeCommand(client, message)
	default:
		h.sendError(client, message.RequestID, fmt.Sprintf("unknown message type: %s", message.Type))
	}
}

// handleSubscription updates the client's event type filter
func (h *WebSocketHandler) handleSubscription(client *Client, message *WebSocketMessage) {
	data, _ := message.Data.(map[string]interface{})
	eventType, ok := data["event_type"].(string)
	if !ok || eventType == "" {
		h.sendError(client, message.RequestID, "event_type is required")
		return
	}

	if message.Type == "subscribe" {
		client.Subscribe(model.EventType(eventType))
	} else {
		client.Unsubscribe(model.EventType(eventType))
	}

	h.sendMessage(client, &WebSocketMessage{
		Type: message.Type + "d",
		Data: map[string]interface{}{
			"event_type":    eventType,
			"subscriptions": client.Subscriptions(),
		},
		Timestamp: time.Now(),
		RequestID: message.RequestID,
	})
}

// executeCommand runs a read or set-point command and answers with a
// command_response message
func (h *WebSocketHandler) executeCommand(client *Client, message *WebSocketMessage) {
	data, _ := message.Data.(map[string]interface{})

	station, err := commandStation(client, data)
	if err != nil {
		h.sendCommandResponse(client, message, -1, nil, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsCommandTimeout)
	defer cancel()

	var result interface{}
	switch message.Type {
	case "read_pv":
		result, err = h.controllerService.ReadPV(ctx, station)
	case "read_sv":
		result, err = h.controllerService.ReadSV(ctx, station)
	case "set_sv":
		value, ok := data["value"].(float64)
		if !ok {
			err = fmt.Errorf("%w: value is required", protocol.ErrInvalidValue)
			break
		}
		if err = h.controllerService.SetSV(ctx, station, value); err == nil {
			result = map[string]interface{}{"value": value}
		}
	}

	h.sendCommandResponse(client, message, station, result, err)
}

// commandStation resolves the target station: station streams are bound
// to theirs, event streams must name one.
func commandStation(client *Client, data map[string]interface{}) (int, error) {
	if client.Station != nil {
		return *client.Station, nil
	}
	v, ok := data["station"].(float64)
	if !ok || v != float64(int(v)) {
		return 0, fmt.Errorf("%w: station is required", protocol.ErrInvalidStation)
	}
	return int(v), nil
}

func (h *WebSocketHandler) sendCommandResponse(client *Client, message *WebSocketMessage, station int, result interface{}, err error) {
	data := map[string]interface{}{
		"command": message.Type,
		"success": err == nil,
	}
	if station >= 0 {
		data["station"] = station
	}
	if err != nil {
		data["error"] = err.Error()
		data["error_kind"] = protocol.KindOf(err)
	} else {
		data["result"] = result
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      data,
		Timestamp: time.Now(),
		RequestID: message.RequestID,
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.SendTo(client, messageBytes) {
		h.logger.Warn("Client gone or send queue full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// BroadcastEvent sends a controller event to every event client and, for
// station events, to the clients following that station.
func (h *WebSocketHandler) BroadcastEvent(event model.ControllerEvent) int {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "controller_event",
		Data:      event,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return 0
	}

	return h.connections.Deliver(messageBytes,
		func(c *Client) bool {
			if !c.Wants(event.EventType) {
				return false
			}
			if c.Type == ClientTypeEvents {
				return true
			}
			// controller-wide events reach station streams too
			return event.Station == nil || event.ForStation(*c.Station)
		},
		func(c *Client) {
			h.logger.Warn("Client send channel full during broadcast",
				zap.String("client_id", c.ID),
			)
		},
	)
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
