// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRobotConnected    EventType = "ROBOT_CONNECTED"
	EventRobotDisconnected EventType = "ROBOT_DISCONNECTED"
	EventRobotFaulted      EventType = "ROBOT_FAULTED"
	EventCommandCompleted  EventType = "COMMAND_COMPLETED"
	EventCommandFailed     EventType = "COMMAND_FAILED"
	EventTelemetryUpdate   EventType = "TELEMETRY_UPDATE"
)

// RobotEvent represents an event in the system
type RobotEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	RobotID   uuid.UUID  `json:"robot_id"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR, CRITICAL
}

// CommandEventData represents command-related events
type CommandEventData struct {
	CommandID    uuid.UUID     `json:"command_id"`
	Kind         CommandKind   `json:"kind"`
	Status       CommandStatus `json:"status"`
	DurationMs   *int          `json:"duration_ms,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
}
