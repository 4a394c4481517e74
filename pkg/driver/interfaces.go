// pkg/driver/interfaces.go
package driver

import (
	"context"
)

// RobotDriver is the interface all robot drivers implement. The protocol is
// strictly synchronous: one outstanding request at a time, and concurrent
// calls from multiple goroutines are not supported.
type RobotDriver interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Reset reopens the link after a communication fault and clears the
	// timeout history.
	Reset(ctx context.Context) error

	// Robot information and diagnostics
	GetRobotInfo() RobotInfo
	Stats() LinkStats

	// Movement. Keyword forms (forward/f, backward/b, stop/s for Move;
	// right/r, left/l, stop/s for Turn) are fire-and-forget; the distance
	// and angle forms wait for the robot's acknowledgement.
	Move(ctx context.Context, direction string) error
	MoveDistance(ctx context.Context, cm float64) error
	Turn(ctx context.Context, direction string) error
	TurnAngle(ctx context.Context, degrees float64) error
	Stop(ctx context.Context) error

	// Gripper: open/o, close/c, stop/s keyword form, or a distance in cm.
	Gripper(ctx context.Context, action string) error
	GripperDistance(ctx context.Context, cm float64) error

	// Actuators
	Motors(ctx context.Context, left, right *int) error
	Servo(ctx context.Context, angle int) error
	LED(ctx context.Context, rgb []int) error
	Beep(ctx context.Context, frequency int, duration float64) error
	NoBeep(ctx context.Context) error

	// Sensors
	Ping(ctx context.Context) (float64, error)
	Lidar(ctx context.Context) (float64, error)
	Line(ctx context.Context) (map[string]float64, error)
	LineValues(ctx context.Context) ([]float64, error)
	Light(ctx context.Context) (map[string]float64, error)
	LightValues(ctx context.Context) ([]float64, error)
	Accel(ctx context.Context) (Vector3, error)
	Mag(ctx context.Context) (Vector3, error)
	Battery(ctx context.Context) (float64, error)

	// SetCommTimeout adjusts the robot's on-device communication timeout.
	SetCommTimeout(ctx context.Context, seconds float64) error
}
