// internal/service/robot_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparki-service/internal/model"
	"sparki-service/internal/utils"
	"sparki-service/pkg/driver"
)

// stubDriver returns a fixed error from every operation
type stubDriver struct {
	err       error
	connected bool
}

func (s *stubDriver) Connect(ctx context.Context) error { s.connected = true; return s.err }
func (s *stubDriver) Disconnect() error                 { s.connected = false; return s.err }
func (s *stubDriver) IsConnected() bool                 { return s.connected }
func (s *stubDriver) Reset(ctx context.Context) error   { return s.err }
func (s *stubDriver) GetRobotInfo() driver.RobotInfo    { return driver.RobotInfo{Model: "Sparki"} }
func (s *stubDriver) Stats() driver.LinkStats           { return driver.LinkStats{} }

func (s *stubDriver) Move(ctx context.Context, direction string) error      { return s.err }
func (s *stubDriver) MoveDistance(ctx context.Context, cm float64) error    { return s.err }
func (s *stubDriver) Turn(ctx context.Context, direction string) error      { return s.err }
func (s *stubDriver) TurnAngle(ctx context.Context, degrees float64) error  { return s.err }
func (s *stubDriver) Stop(ctx context.Context) error                        { return s.err }
func (s *stubDriver) Gripper(ctx context.Context, action string) error      { return s.err }
func (s *stubDriver) GripperDistance(ctx context.Context, cm float64) error { return s.err }
func (s *stubDriver) Motors(ctx context.Context, left, right *int) error    { return s.err }
func (s *stubDriver) Servo(ctx context.Context, angle int) error            { return s.err }
func (s *stubDriver) LED(ctx context.Context, rgb []int) error              { return s.err }
func (s *stubDriver) Beep(ctx context.Context, f int, d float64) error      { return s.err }
func (s *stubDriver) NoBeep(ctx context.Context) error                      { return s.err }
func (s *stubDriver) SetCommTimeout(ctx context.Context, sec float64) error { return s.err }
func (s *stubDriver) Ping(ctx context.Context) (float64, error)             { return 10, s.err }
func (s *stubDriver) Lidar(ctx context.Context) (float64, error)            { return 20, s.err }
func (s *stubDriver) Line(ctx context.Context) (map[string]float64, error)  { return nil, s.err }
func (s *stubDriver) LineValues(ctx context.Context) ([]float64, error)     { return nil, s.err }
func (s *stubDriver) Light(ctx context.Context) (map[string]float64, error) { return nil, s.err }
func (s *stubDriver) LightValues(ctx context.Context) ([]float64, error)    { return nil, s.err }
func (s *stubDriver) Accel(ctx context.Context) (driver.Vector3, error) {
	return driver.Vector3{}, s.err
}
func (s *stubDriver) Mag(ctx context.Context) (driver.Vector3, error) { return driver.Vector3{}, s.err }
func (s *stubDriver) Battery(ctx context.Context) (float64, error)    { return 4.2, s.err }

// capturingPublisher collects published events
type capturingPublisher struct {
	events []*model.RobotEvent
}

func (p *capturingPublisher) PublishRobotEvent(event *model.RobotEvent) {
	p.events = append(p.events, event)
}

func testService(stub *stubDriver) (*RobotService, *capturingPublisher) {
	rs := &RobotService{
		robot: &model.Robot{
			ID:     uuid.New(),
			Name:   "sparki",
			Status: model.RobotStatusOnline,
		},
		driver: stub,
		logger: utils.NewServiceLogger(zap.NewNop(), "robot-service"),
	}
	pub := &capturingPublisher{}
	rs.SetEventPublisher(pub)
	return rs, pub
}

func TestCommandStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.CommandStatus
	}{
		{"success", nil, model.CommandStatusSuccess},
		{"timeout", fmt.Errorf("ping: %w", driver.ErrReplyTimeout), model.CommandStatusTimeout},
		{"rejected", fmt.Errorf("move: %w", driver.ErrCommandRejected), model.CommandStatusRejected},
		{"fault", fmt.Errorf("receive: %w", driver.ErrLinkFault), model.CommandStatusFault},
		{"other", errors.New("boom"), model.CommandStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandStatus(tt.err); got != tt.want {
				t.Errorf("commandStatus(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestRunCommand_PublishesCompletionEvent(t *testing.T) {
	rs, pub := testService(&stubDriver{})

	if err := rs.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("got %d events, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.EventType != model.EventCommandCompleted {
		t.Errorf("event type = %s, want COMMAND_COMPLETED", event.EventType)
	}
	if event.Data["status"] != string(model.CommandStatusSuccess) {
		t.Errorf("event status = %v, want SUCCESS", event.Data["status"])
	}
}

func TestRunCommand_LinkFaultMarksRobotFaulted(t *testing.T) {
	stub := &stubDriver{err: fmt.Errorf("receive: %w", driver.ErrLinkFault)}
	rs, pub := testService(stub)

	err := rs.Move(context.Background(), "forward")
	if !errors.Is(err, driver.ErrLinkFault) {
		t.Fatalf("err = %v, want ErrLinkFault", err)
	}

	if got := rs.Robot().Status; got != model.RobotStatusFaulted {
		t.Errorf("robot status = %s, want FAULTED", got)
	}

	var sawFault bool
	for _, event := range pub.events {
		if event.EventType == model.EventRobotFaulted {
			sawFault = true
			if event.Severity != "CRITICAL" {
				t.Errorf("fault severity = %s, want CRITICAL", event.Severity)
			}
		}
	}
	if !sawFault {
		t.Error("no ROBOT_FAULTED event published")
	}
}

func TestSnapshot_ToleratesTimeouts(t *testing.T) {
	stub := &stubDriver{err: fmt.Errorf("query: %w", driver.ErrReplyTimeout)}
	rs, _ := testService(stub)

	snapshot, err := rs.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.CapturedAt.IsZero() {
		t.Error("snapshot timestamp not set")
	}
}

func TestSnapshot_AbortsOnLinkFault(t *testing.T) {
	stub := &stubDriver{err: fmt.Errorf("receive: %w", driver.ErrLinkFault)}
	rs, _ := testService(stub)

	if _, err := rs.Snapshot(context.Background()); !errors.Is(err, driver.ErrLinkFault) {
		t.Fatalf("err = %v, want ErrLinkFault", err)
	}
}

func TestConnect_UpdatesRobotState(t *testing.T) {
	rs, pub := testService(&stubDriver{})

	if err := rs.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	robot := rs.Robot()
	if robot.Status != model.RobotStatusOnline {
		t.Errorf("status = %s, want ONLINE", robot.Status)
	}
	if robot.ConnectedAt == nil {
		t.Error("ConnectedAt not set")
	}
	if len(pub.events) == 0 || pub.events[0].EventType != model.EventRobotConnected {
		t.Error("no ROBOT_CONNECTED event published")
	}
}
