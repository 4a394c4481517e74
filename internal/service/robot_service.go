// internal/service/robot_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparki-service/internal/config"
	internalDriver "sparki-service/internal/driver"
	"sparki-service/internal/model"
	"sparki-service/internal/repository"
	"sparki-service/internal/utils"
	"sparki-service/pkg/driver"
)

// EventPublisher delivers robot events to interested subscribers, typically
// the websocket telemetry layer
type EventPublisher interface {
	PublishRobotEvent(event *model.RobotEvent)
}

// RobotService handles robot control business logic. It owns the single
// configured robot and serializes all command traffic through its driver.
type RobotService struct {
	robot       *model.Robot
	driver      driver.RobotDriver
	commandRepo repository.CommandRepository // nil when history is disabled
	config      *config.Config
	logger      *utils.ServiceLogger
	events      EventPublisher

	mutex sync.RWMutex
}

// RobotStatusInfo combines robot state with link diagnostics
type RobotStatusInfo struct {
	Robot *model.Robot     `json:"robot"`
	Info  driver.RobotInfo `json:"info"`
	Stats driver.LinkStats `json:"stats"`
}

// NewRobotService creates a robot service for the configured robot
func NewRobotService(
	registry *internalDriver.Registry,
	commandRepo repository.CommandRepository,
	cfg *config.Config,
	logger *zap.Logger,
) (*RobotService, error) {
	robot := &model.Robot{
		ID:     uuid.New(),
		Name:   cfg.Robot.Name,
		IP:     cfg.Robot.IP,
		Port:   cfg.Robot.Port,
		Model:  model.RobotModelSparki,
		Status: model.RobotStatusOffline,
	}

	robotDriver, err := registry.CreateDriver(robot, &cfg.Robot)
	if err != nil {
		return nil, fmt.Errorf("failed to create robot driver: %w", err)
	}

	return &RobotService{
		robot:       robot,
		driver:      robotDriver,
		commandRepo: commandRepo,
		config:      cfg,
		logger:      utils.NewServiceLogger(logger, "robot-service"),
	}, nil
}

// SetEventPublisher wires the event sink. Safe to leave unset; events are
// then dropped.
func (rs *RobotService) SetEventPublisher(events EventPublisher) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	rs.events = events
}

// Robot returns the managed robot
func (rs *RobotService) Robot() *model.Robot {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	robot := *rs.robot
	return &robot
}

// Status returns robot state plus link diagnostics
func (rs *RobotService) Status() *RobotStatusInfo {
	return &RobotStatusInfo{
		Robot: rs.Robot(),
		Info:  rs.driver.GetRobotInfo(),
		Stats: rs.driver.Stats(),
	}
}

// Connect opens the link to the robot
func (rs *RobotService) Connect(ctx context.Context) error {
	rs.setStatus(model.RobotStatusConnecting)

	if err := rs.driver.Connect(ctx); err != nil {
		rs.setStatus(model.RobotStatusOffline)
		return fmt.Errorf("failed to connect to robot: %w", err)
	}

	now := time.Now()
	rs.mutex.Lock()
	rs.robot.Status = model.RobotStatusOnline
	rs.robot.ConnectedAt = &now
	rs.mutex.Unlock()

	rs.publishEvent(model.EventRobotConnected, "INFO", model.JSONObject{
		"address": rs.driver.GetRobotInfo().Address,
	})

	rs.logger.Info("Robot connected",
		zap.String("robot", rs.robot.Name),
		zap.String("address", rs.driver.GetRobotInfo().Address),
	)
	return nil
}

// Disconnect closes the link
func (rs *RobotService) Disconnect() error {
	if err := rs.driver.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect robot: %w", err)
	}

	rs.setStatus(model.RobotStatusOffline)
	rs.publishEvent(model.EventRobotDisconnected, "INFO", nil)
	return nil
}

// Reset reopens the link after a communication fault
func (rs *RobotService) Reset(ctx context.Context) error {
	if err := rs.driver.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset robot link: %w", err)
	}

	rs.setStatus(model.RobotStatusOnline)
	rs.logger.Info("Robot link reset", zap.String("robot", rs.robot.Name))
	return nil
}

// IsConnected reports link availability
func (rs *RobotService) IsConnected() bool {
	return rs.driver.IsConnected()
}

// Movement operations

func (rs *RobotService) Move(ctx context.Context, direction string) error {
	return rs.runCommand(ctx, model.CommandKindMove, direction, func(ctx context.Context) error {
		return rs.driver.Move(ctx, direction)
	})
}

func (rs *RobotService) MoveDistance(ctx context.Context, cm float64) error {
	return rs.runCommand(ctx, model.CommandKindMove, fmt.Sprintf("%.2f cm", cm), func(ctx context.Context) error {
		return rs.driver.MoveDistance(ctx, cm)
	})
}

func (rs *RobotService) Turn(ctx context.Context, direction string) error {
	return rs.runCommand(ctx, model.CommandKindTurn, direction, func(ctx context.Context) error {
		return rs.driver.Turn(ctx, direction)
	})
}

func (rs *RobotService) TurnAngle(ctx context.Context, degrees float64) error {
	return rs.runCommand(ctx, model.CommandKindTurn, fmt.Sprintf("%.2f deg", degrees), func(ctx context.Context) error {
		return rs.driver.TurnAngle(ctx, degrees)
	})
}

func (rs *RobotService) Stop(ctx context.Context) error {
	return rs.runCommand(ctx, model.CommandKindStop, "", func(ctx context.Context) error {
		return rs.driver.Stop(ctx)
	})
}

func (rs *RobotService) Gripper(ctx context.Context, action string) error {
	return rs.runCommand(ctx, model.CommandKindGripper, action, func(ctx context.Context) error {
		return rs.driver.Gripper(ctx, action)
	})
}

func (rs *RobotService) GripperDistance(ctx context.Context, cm float64) error {
	return rs.runCommand(ctx, model.CommandKindGripper, fmt.Sprintf("%.2f cm", cm), func(ctx context.Context) error {
		return rs.driver.GripperDistance(ctx, cm)
	})
}

// Actuator operations

func (rs *RobotService) Motors(ctx context.Context, left, right *int) error {
	return rs.runCommand(ctx, model.CommandKindMotors, motorsPayload(left, right), func(ctx context.Context) error {
		return rs.driver.Motors(ctx, left, right)
	})
}

func (rs *RobotService) Servo(ctx context.Context, angle int) error {
	return rs.runCommand(ctx, model.CommandKindServo, fmt.Sprintf("%d deg", angle), func(ctx context.Context) error {
		return rs.driver.Servo(ctx, angle)
	})
}

func (rs *RobotService) LED(ctx context.Context, rgb []int) error {
	return rs.runCommand(ctx, model.CommandKindLED, fmt.Sprintf("%v", rgb), func(ctx context.Context) error {
		return rs.driver.LED(ctx, rgb)
	})
}

func (rs *RobotService) Beep(ctx context.Context, frequency int, duration float64) error {
	payload := fmt.Sprintf("%d Hz for %.3f s", frequency, duration)
	return rs.runCommand(ctx, model.CommandKindBeep, payload, func(ctx context.Context) error {
		return rs.driver.Beep(ctx, frequency, duration)
	})
}

func (rs *RobotService) NoBeep(ctx context.Context) error {
	return rs.runCommand(ctx, model.CommandKindNoBeep, "", func(ctx context.Context) error {
		return rs.driver.NoBeep(ctx)
	})
}

func (rs *RobotService) SetCommTimeout(ctx context.Context, seconds float64) error {
	payload := fmt.Sprintf("%.3f s", seconds)
	return rs.runCommand(ctx, model.CommandKindCommTimeout, payload, func(ctx context.Context) error {
		return rs.driver.SetCommTimeout(ctx, seconds)
	})
}

// Sensor operations

func (rs *RobotService) Ping(ctx context.Context) (float64, error) {
	var value float64
	err := rs.runCommand(ctx, model.CommandKindPing, "", func(ctx context.Context) error {
		var err error
		value, err = rs.driver.Ping(ctx)
		return err
	})
	return value, err
}

func (rs *RobotService) Lidar(ctx context.Context) (float64, error) {
	var value float64
	err := rs.runCommand(ctx, model.CommandKindLidar, "", func(ctx context.Context) error {
		var err error
		value, err = rs.driver.Lidar(ctx)
		return err
	})
	return value, err
}

func (rs *RobotService) Line(ctx context.Context) (map[string]float64, error) {
	var values map[string]float64
	err := rs.runCommand(ctx, model.CommandKindLine, "", func(ctx context.Context) error {
		var err error
		values, err = rs.driver.Line(ctx)
		return err
	})
	return values, err
}

func (rs *RobotService) LineValues(ctx context.Context) ([]float64, error) {
	var values []float64
	err := rs.runCommand(ctx, model.CommandKindLine, "as list", func(ctx context.Context) error {
		var err error
		values, err = rs.driver.LineValues(ctx)
		return err
	})
	return values, err
}

func (rs *RobotService) Light(ctx context.Context) (map[string]float64, error) {
	var values map[string]float64
	err := rs.runCommand(ctx, model.CommandKindLight, "", func(ctx context.Context) error {
		var err error
		values, err = rs.driver.Light(ctx)
		return err
	})
	return values, err
}

func (rs *RobotService) LightValues(ctx context.Context) ([]float64, error) {
	var values []float64
	err := rs.runCommand(ctx, model.CommandKindLight, "as list", func(ctx context.Context) error {
		var err error
		values, err = rs.driver.LightValues(ctx)
		return err
	})
	return values, err
}

func (rs *RobotService) Accel(ctx context.Context) (driver.Vector3, error) {
	var value driver.Vector3
	err := rs.runCommand(ctx, model.CommandKindAccel, "", func(ctx context.Context) error {
		var err error
		value, err = rs.driver.Accel(ctx)
		return err
	})
	return value, err
}

func (rs *RobotService) Mag(ctx context.Context) (driver.Vector3, error) {
	var value driver.Vector3
	err := rs.runCommand(ctx, model.CommandKindMag, "", func(ctx context.Context) error {
		var err error
		value, err = rs.driver.Mag(ctx)
		return err
	})
	return value, err
}

func (rs *RobotService) Battery(ctx context.Context) (float64, error) {
	var value float64
	err := rs.runCommand(ctx, model.CommandKindBattery, "", func(ctx context.Context) error {
		var err error
		value, err = rs.driver.Battery(ctx)
		return err
	})
	return value, err
}

// Snapshot runs one round of sensor queries for the telemetry stream. A
// timed-out sensor leaves its zero value in place rather than failing the
// whole snapshot; only a link fault aborts.
func (rs *RobotService) Snapshot(ctx context.Context) (*driver.SensorSnapshot, error) {
	snapshot := &driver.SensorSnapshot{CapturedAt: time.Now()}

	sensors := []func() error{
		func() (err error) { snapshot.Ping, err = rs.Ping(ctx); return },
		func() (err error) { snapshot.Lidar, err = rs.Lidar(ctx); return },
		func() (err error) { snapshot.Line, err = rs.Line(ctx); return },
		func() (err error) { snapshot.Light, err = rs.Light(ctx); return },
		func() (err error) { snapshot.Accel, err = rs.Accel(ctx); return },
		func() (err error) { snapshot.Mag, err = rs.Mag(ctx); return },
		func() (err error) { snapshot.Battery, err = rs.Battery(ctx); return },
	}

	for _, query := range sensors {
		err := query()
		if err == nil || errors.Is(err, driver.ErrReplyTimeout) {
			continue
		}
		if errors.Is(err, driver.ErrHardwareNotReady) {
			continue
		}
		return nil, err
	}

	return snapshot, nil
}

// runCommand executes a robot command, records it in the history and
// publishes the resulting event
func (rs *RobotService) runCommand(ctx context.Context, kind model.CommandKind, payload string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	durationMs := int(time.Since(start) / time.Millisecond)

	status := commandStatus(err)
	record := &model.CommandRecord{
		ID:         uuid.New(),
		RobotID:    rs.robot.ID,
		Kind:       kind,
		Payload:    payload,
		Status:     status,
		DurationMs: &durationMs,
		CreatedAt:  start,
	}
	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
	}

	rs.recordCommand(record)

	if errors.Is(err, driver.ErrLinkFault) {
		rs.setStatus(model.RobotStatusFaulted)
		rs.publishEvent(model.EventRobotFaulted, "CRITICAL", model.JSONObject{
			"kind":  string(kind),
			"error": err.Error(),
		})
	} else if status == model.CommandStatusSuccess {
		rs.touchLastPing()
	}

	eventType := model.EventCommandCompleted
	severity := "INFO"
	if record.IsFailure() {
		eventType = model.EventCommandFailed
		severity = "WARNING"
	}
	rs.publishEvent(eventType, severity, model.JSONObject{
		"command_id":  record.ID.String(),
		"kind":        string(kind),
		"status":      string(status),
		"duration_ms": durationMs,
	})

	return err
}

// recordCommand persists a command record when history is enabled
func (rs *RobotService) recordCommand(record *model.CommandRecord) {
	if rs.commandRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rs.commandRepo.Create(ctx, record); err != nil {
		rs.logger.Warn("Failed to persist command record",
			zap.String("kind", string(record.Kind)),
			zap.Error(err),
		)
	}
}

func (rs *RobotService) publishEvent(eventType model.EventType, severity string, data model.JSONObject) {
	rs.mutex.RLock()
	events := rs.events
	robotID := rs.robot.ID
	rs.mutex.RUnlock()

	if events == nil {
		return
	}
	if data == nil {
		data = model.JSONObject{}
	}

	events.PublishRobotEvent(&model.RobotEvent{
		ID:        uuid.New(),
		EventType: eventType,
		RobotID:   robotID,
		Data:      data,
		Timestamp: time.Now(),
		Source:    "robot-service",
		Severity:  severity,
	})
}

func (rs *RobotService) setStatus(status model.RobotStatus) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	rs.robot.Status = status
}

func (rs *RobotService) touchLastPing() {
	now := time.Now()
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	rs.robot.LastPing = &now
}

// commandStatus maps a driver error to the command outcome
func commandStatus(err error) model.CommandStatus {
	switch {
	case err == nil:
		return model.CommandStatusSuccess
	case errors.Is(err, driver.ErrLinkFault):
		return model.CommandStatusFault
	case errors.Is(err, driver.ErrReplyTimeout):
		return model.CommandStatusTimeout
	case errors.Is(err, driver.ErrCommandRejected):
		return model.CommandStatusRejected
	default:
		return model.CommandStatusFailed
	}
}

func motorsPayload(left, right *int) string {
	text := func(v *int) string {
		if v == nil {
			return "unchanged"
		}
		return fmt.Sprintf("%d", *v)
	}
	return fmt.Sprintf("left=%s right=%s", text(left), text(right))
}
