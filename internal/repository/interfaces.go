// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sparki-service/internal/model"
)

// CommandRepository defines command history data access operations
type CommandRepository interface {
	// CRUD operations
	Create(ctx context.Context, command *model.CommandRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Listing and filtering
	List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error)
	ListByRobot(ctx context.Context, robotID uuid.UUID, limit int) ([]*model.CommandRecord, error)
	ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]*model.CommandRecord, error)

	// Analytics and reporting
	GetCommandStats(ctx context.Context, filter *CommandStatsFilter) (*CommandStats, error)

	// Cleanup
	DeleteOldCommands(ctx context.Context, olderThan time.Time) (int64, error)
}

// Filter structures

// CommandFilter represents command listing filters
type CommandFilter struct {
	RobotID       *uuid.UUID           `json:"robot_id,omitempty"`
	Kind          *model.CommandKind   `json:"kind,omitempty"`
	Status        *model.CommandStatus `json:"status,omitempty"`
	CorrelationID *uuid.UUID           `json:"correlation_id,omitempty"`
	StartDate     *time.Time           `json:"start_date,omitempty"`
	EndDate       *time.Time           `json:"end_date,omitempty"`
	Page          int                  `json:"page"`
	PerPage       int                  `json:"per_page"`
	SortBy        string               `json:"sort_by"`
	SortOrder     string               `json:"sort_order"`
}

// CommandStatsFilter represents command statistics filters
type CommandStatsFilter struct {
	RobotID   *uuid.UUID `json:"robot_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Statistics structures

// CommandStats represents command statistics
type CommandStats struct {
	TotalCommands  int                         `json:"total_commands"`
	SuccessfulCmds int                         `json:"successful_commands"`
	TimedOutCmds   int                         `json:"timed_out_commands"`
	RejectedCmds   int                         `json:"rejected_commands"`
	FailedCmds     int                         `json:"failed_commands"`
	AvgDurationMs  float64                     `json:"average_duration_ms"`
	ByKind         map[model.CommandKind]int   `json:"by_kind"`
	ByStatus       map[model.CommandStatus]int `json:"by_status"`
}
