// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sparki-service/internal/model"
	"sparki-service/internal/service"
	"sparki-service/internal/utils"
)

// WebSocketHandler manages WebSocket connections for real-time communication
type WebSocketHandler struct {
	upgrader          websocket.Upgrader
	connections       *ConnectionManager
	robotService      *service.RobotService
	logger            *utils.ServiceLogger
	telemetryInterval time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	robotService *service.RobotService,
	telemetryInterval time.Duration,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	if telemetryInterval <= 0 {
		telemetryInterval = time.Second
	}

	return &WebSocketHandler{
		upgrader:          upgrader,
		connections:       NewConnectionManager(),
		robotService:      robotService,
		logger:            utils.NewServiceLogger(logger, "websocket-handler"),
		telemetryInterval: telemetryInterval,
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Periodic sensor snapshots
	router.GET("/telemetry", h.HandleTelemetryConnection)

	// Robot lifecycle and command events
	router.GET("/events", h.HandleEventConnection)
}

// HandleTelemetryConnection handles telemetry stream WebSocket connections
func (h *WebSocketHandler) HandleTelemetryConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        "telemetry",
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Telemetry WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	// Send initial robot status
	go h.sendInitialStatus(client)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// HandleEventConnection handles robot event WebSocket connections
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        "events",
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
	)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// StartTelemetryPump polls the robot sensors and streams snapshots to
// telemetry clients until the context is cancelled.
func (h *WebSocketHandler) StartTelemetryPump(ctx context.Context) {
	ticker := time.NewTicker(h.telemetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pumpTelemetry(ctx)
		}
	}
}

// pumpTelemetry runs one sensor round and broadcasts it
func (h *WebSocketHandler) pumpTelemetry(ctx context.Context) {
	clients := h.connections.GetTelemetryClients()
	if len(clients) == 0 || !h.robotService.IsConnected() {
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, h.telemetryInterval)
	defer cancel()

	snapshot, err := h.robotService.Snapshot(queryCtx)
	if err != nil {
		h.logger.Warn("Telemetry snapshot failed", zap.Error(err))
		return
	}

	h.broadcastToClients(clients, &WebSocketMessage{
		Type:      "telemetry",
		Data:      snapshot,
		Timestamp: time.Now(),
	})
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	// Set read deadline and pong handler
	client.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
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

		// Parse message
		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Error("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			continue
		}

		// Handle message
		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe":
		h.handleSubscription(client, message)
	case "unsubscribe":
		h.handleUnsubscription(client, message)
	case "robot_command":
		h.handleRobotCommand(client, message)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
	}
}

// handleSubscription handles client subscription requests
func (h *WebSocketHandler) handleSubscription(client *Client, message *WebSocketMessage) {
	if client.Subscriptions == nil {
		client.Subscriptions = make(map[string]bool)
	}

	if data, ok := message.Data.(map[string]interface{}); ok {
		if topic, ok := data["topic"].(string); ok {
			client.Subscriptions[topic] = true
			h.logger.Info("Client subscribed to topic",
				zap.String("client_id", client.ID),
				zap.String("topic", topic),
			)

			// Send subscription confirmation
			h.sendMessage(client, &WebSocketMessage{
				Type: "subscription_confirmed",
				Data: map[string]interface{}{
					"topic": topic,
				},
				Timestamp: time.Now(),
			})
		}
	}
}

// handleUnsubscription handles client unsubscription requests
func (h *WebSocketHandler) handleUnsubscription(client *Client, message *WebSocketMessage) {
	if client.Subscriptions == nil {
		return
	}

	if data, ok := message.Data.(map[string]interface{}); ok {
		if topic, ok := data["topic"].(string); ok {
			delete(client.Subscriptions, topic)
			h.logger.Info("Client unsubscribed from topic",
				zap.String("client_id", client.ID),
				zap.String("topic", topic),
			)
		}
	}
}

// handleRobotCommand handles robot command messages
func (h *WebSocketHandler) handleRobotCommand(client *Client, message *WebSocketMessage) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		h.sendError(client, "invalid command data")
		return
	}

	command, ok := data["command"].(string)
	if !ok {
		h.sendError(client, "command is required")
		return
	}

	go h.executeRobotCommand(client, command)
}

// executeRobotCommand executes a robot command
func (h *WebSocketHandler) executeRobotCommand(client *Client, command string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	var result interface{}

	switch command {
	case "connect":
		err = h.robotService.Connect(ctx)
		result = map[string]interface{}{"connected": err == nil}

	case "disconnect":
		err = h.robotService.Disconnect()
		result = map[string]interface{}{"disconnected": err == nil}

	case "stop":
		err = h.robotService.Stop(ctx)
		result = map[string]interface{}{"stopped": err == nil}

	case "reset":
		err = h.robotService.Reset(ctx)
		result = map[string]interface{}{"reset": err == nil}

	case "status":
		result = h.robotService.Status()

	default:
		h.sendError(client, fmt.Sprintf("unknown command: %s", command))
		return
	}

	// Send response
	response := &WebSocketMessage{
		Type: "command_response",
		Data: map[string]interface{}{
			"command": command,
			"success": err == nil,
			"result":  result,
		},
		Timestamp: time.Now(),
	}

	if err != nil {
		response.Data.(map[string]interface{})["error"] = err.Error()
	}

	h.sendMessage(client, response)
}

// sendInitialStatus sends the current robot status to a new client
func (h *WebSocketHandler) sendInitialStatus(client *Client) {
	message := &WebSocketMessage{
		Type:      "initial_status",
		Data:      h.robotService.Status(),
		Timestamp: time.Now(),
	}

	h.sendMessage(client, message)
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	message := &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	}
	h.sendMessage(client, message)
}

// BroadcastRobotEvent broadcasts a robot event to event and telemetry clients
func (h *WebSocketHandler) BroadcastRobotEvent(event *model.RobotEvent) {
	message := &WebSocketMessage{
		Type:      "robot_event",
		Data:      event,
		Timestamp: time.Now(),
	}

	h.broadcastToClients(h.connections.GetEventClients(), message)

	// Fault and connection changes matter to telemetry watchers too
	switch event.EventType {
	case model.EventRobotConnected, model.EventRobotDisconnected, model.EventRobotFaulted:
		h.broadcastToClients(h.connections.GetTelemetryClients(), message)
	}
}

// broadcastToClients broadcasts message to specified clients
func (h *WebSocketHandler) broadcastToClients(clients []*Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("Client send channel full during broadcast",
				zap.String("client_id", client.ID),
			)
		}
	}
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
