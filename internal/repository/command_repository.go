// internal/repository/command_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparki-service/internal/database"
	"sparki-service/internal/model"
)

// sortableColumns whitelists the columns List may order by. User input is
// never spliced into the query text directly.
var sortableColumns = map[string]string{
	"created_at":  "created_at",
	"duration_ms": "duration_ms",
	"kind":        "kind",
	"status":      "status",
}

// IsSortableColumn reports whether column is a valid List sort target
func IsSortableColumn(column string) bool {
	_, ok := sortableColumns[column]
	return ok
}

// commandRepository implements CommandRepository interface
type commandRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCommandRepository creates a new command history repository
func NewCommandRepository(db *database.DB, logger *zap.Logger) CommandRepository {
	return &commandRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new command record
func (r *commandRepository) Create(ctx context.Context, command *model.CommandRecord) error {
	query := `
		INSERT INTO command_history (
			id, robot_id, kind, payload, reply, status,
			duration_ms, error_message, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		command.ID, command.RobotID, command.Kind, command.Payload,
		command.Reply, command.Status, command.DurationMs,
		command.ErrorMessage, command.CorrelationID, command.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create command record", zap.Error(err))
		return fmt.Errorf("failed to create command record: %w", err)
	}

	return nil
}

// GetByID retrieves a command record by ID
func (r *commandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	query := `
		SELECT id, robot_id, kind, payload, reply, status,
			   duration_ms, error_message, correlation_id, created_at
		FROM command_history WHERE id = $1
	`

	command := &model.CommandRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&command.ID, &command.RobotID, &command.Kind, &command.Payload,
		&command.Reply, &command.Status, &command.DurationMs,
		&command.ErrorMessage, &command.CorrelationID, &command.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("command not found with id: %s", id)
		}
		return nil, fmt.Errorf("failed to get command: %w", err)
	}

	return command, nil
}

// Delete removes a command record
func (r *commandRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM command_history WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete command: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("command not found with id: %s", id)
	}

	return nil
}

// List retrieves command records with filtering and pagination
func (r *commandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error) {
	// Build WHERE clause
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.RobotID != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("robot_id = $%d", argIndex))
		args = append(args, *filter.RobotID)
		argIndex++
	}

	if filter.Kind != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("kind = $%d", argIndex))
		args = append(args, *filter.Kind)
		argIndex++
	}

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.CorrelationID != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("correlation_id = $%d", argIndex))
		args = append(args, *filter.CorrelationID)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_history %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count commands: %w", err)
	}

	// Build ORDER BY clause; only whitelisted columns reach the query text
	orderBy := "created_at DESC"
	if column, ok := sortableColumns[filter.SortBy]; ok {
		order := "ASC"
		if filter.SortOrder == "desc" {
			order = "DESC"
		}
		orderBy = column + " " + order
	}

	// Build main query with pagination
	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT id, robot_id, kind, payload, reply, status,
			   duration_ms, error_message, correlation_id, created_at
		FROM command_history %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argIndex, argIndex+1)

	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list commands: %w", err)
	}
	defer rows.Close()

	commands := []*model.CommandRecord{}
	for rows.Next() {
		command := &model.CommandRecord{}
		err := rows.Scan(
			&command.ID, &command.RobotID, &command.Kind, &command.Payload,
			&command.Reply, &command.Status, &command.DurationMs,
			&command.ErrorMessage, &command.CorrelationID, &command.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan command row", zap.Error(err))
			continue
		}
		commands = append(commands, command)
	}

	return commands, total, nil
}

// ListByRobot retrieves recent commands for a robot
func (r *commandRepository) ListByRobot(ctx context.Context, robotID uuid.UUID, limit int) ([]*model.CommandRecord, error) {
	query := `
		SELECT id, robot_id, kind, payload, reply, status,
			   duration_ms, error_message, correlation_id, created_at
		FROM command_history
		WHERE robot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryCommands(ctx, query, robotID, limit)
}

// ListByCorrelation retrieves all commands sharing a correlation ID
func (r *commandRepository) ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]*model.CommandRecord, error) {
	query := `
		SELECT id, robot_id, kind, payload, reply, status,
			   duration_ms, error_message, correlation_id, created_at
		FROM command_history
		WHERE correlation_id = $1
		ORDER BY created_at ASC
	`

	return r.queryCommands(ctx, query, correlationID)
}

// GetCommandStats computes aggregate command statistics
func (r *commandRepository) GetCommandStats(ctx context.Context, filter *CommandStatsFilter) (*CommandStats, error) {
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.RobotID != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("robot_id = $%d", argIndex))
		args = append(args, *filter.RobotID)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'SUCCESS'),
			COUNT(*) FILTER (WHERE status = 'TIMEOUT'),
			COUNT(*) FILTER (WHERE status = 'REJECTED'),
			COUNT(*) FILTER (WHERE status IN ('FAULT', 'FAILED')),
			COALESCE(AVG(duration_ms), 0)
		FROM command_history %s
	`, whereClause)

	stats := &CommandStats{
		ByKind:   make(map[model.CommandKind]int),
		ByStatus: make(map[model.CommandStatus]int),
	}

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalCommands, &stats.SuccessfulCmds, &stats.TimedOutCmds,
		&stats.RejectedCmds, &stats.FailedCmds, &stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get command stats: %w", err)
	}

	// Per-kind breakdown
	kindQuery := fmt.Sprintf("SELECT kind, COUNT(*) FROM command_history %s GROUP BY kind", whereClause)
	rows, err := r.db.QueryContext(ctx, kindQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-kind stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind model.CommandKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			continue
		}
		stats.ByKind[kind] = count
	}

	// Per-status breakdown
	statusQuery := fmt.Sprintf("SELECT status, COUNT(*) FROM command_history %s GROUP BY status", whereClause)
	statusRows, err := r.db.QueryContext(ctx, statusQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-status stats: %w", err)
	}
	defer statusRows.Close()

	for statusRows.Next() {
		var status model.CommandStatus
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			continue
		}
		stats.ByStatus[status] = count
	}

	return stats, nil
}

// DeleteOldCommands removes records older than the given time
func (r *commandRepository) DeleteOldCommands(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM command_history WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old commands: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Old command records deleted", zap.Int64("count", deleted))
	return deleted, nil
}

// queryCommands runs a query returning command rows
func (r *commandRepository) queryCommands(ctx context.Context, query string, args ...interface{}) ([]*model.CommandRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	commands := []*model.CommandRecord{}
	for rows.Next() {
		command := &model.CommandRecord{}
		err := rows.Scan(
			&command.ID, &command.RobotID, &command.Kind, &command.Payload,
			&command.Reply, &command.Status, &command.DurationMs,
			&command.ErrorMessage, &command.CorrelationID, &command.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan command row", zap.Error(err))
			continue
		}
		commands = append(commands, command)
	}

	return commands, nil
}
