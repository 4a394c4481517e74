// internal/model/command.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandKind represents the robot operation behind a wire command
type CommandKind string

const (
	CommandKindMove        CommandKind = "MOVE"
	CommandKindTurn        CommandKind = "TURN"
	CommandKindGripper     CommandKind = "GRIPPER"
	CommandKindStop        CommandKind = "STOP"
	CommandKindMotors      CommandKind = "MOTORS"
	CommandKindServo       CommandKind = "SERVO"
	CommandKindLED         CommandKind = "LED"
	CommandKindBeep        CommandKind = "BEEP"
	CommandKindNoBeep      CommandKind = "NOBEEP"
	CommandKindPing        CommandKind = "PING"
	CommandKindLidar       CommandKind = "LIDAR"
	CommandKindLine        CommandKind = "LINE"
	CommandKindLight       CommandKind = "LIGHT"
	CommandKindAccel       CommandKind = "ACCEL"
	CommandKindMag         CommandKind = "MAG"
	CommandKindBattery     CommandKind = "BATTERY"
	CommandKindCommTimeout CommandKind = "COMM_TIMEOUT"
)

// CommandStatus represents how a command resolved
type CommandStatus string

const (
	CommandStatusSuccess  CommandStatus = "SUCCESS"
	CommandStatusTimeout  CommandStatus = "TIMEOUT"
	CommandStatusRejected CommandStatus = "REJECTED"
	CommandStatusFault    CommandStatus = "FAULT"
	CommandStatusFailed   CommandStatus = "FAILED"
)

// CommandRecord is one executed command, kept for diagnostics and history
type CommandRecord struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	RobotID       uuid.UUID     `json:"robot_id" db:"robot_id"`
	Kind          CommandKind   `json:"kind" db:"kind"`
	Payload       string        `json:"payload" db:"payload"` // command parameters as text
	Reply         *string       `json:"reply,omitempty" db:"reply"`
	Status        CommandStatus `json:"status" db:"status"`
	DurationMs    *int          `json:"duration_ms,omitempty" db:"duration_ms"`
	ErrorMessage  *string       `json:"error_message,omitempty" db:"error_message"`
	CorrelationID *uuid.UUID    `json:"correlation_id,omitempty" db:"correlation_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// IsFailure reports whether the command did not complete normally
func (c *CommandRecord) IsFailure() bool {
	return c.Status != CommandStatusSuccess
}
