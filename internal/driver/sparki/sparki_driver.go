// internal/driver/sparki/sparki_driver.go
package sparki

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sparki-service/internal/config"
	"sparki-service/internal/model"
	"sparki-service/internal/protocol"
	"sparki-service/internal/utils"
	"sparki-service/pkg/driver"
)

// SparkiDriver implements driver.RobotDriver for the ArcBotics Sparki behind
// an ESP32 UDP bridge. The protocol is synchronous: the driver serializes all
// command traffic behind a mutex, one datagram exchange at a time.
type SparkiDriver struct {
	config *SparkiConfig
	conn   protocol.Connection
	logger *utils.RobotLogger

	robotInfo driver.RobotInfo

	mutex       sync.Mutex
	isConnected bool

	// Aggregate round-trip accounting across all acknowledged commands
	commandCount int64
	commandTime  time.Duration
}

// SparkiConfig represents Sparki driver configuration
type SparkiConfig struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
	Port int    `json:"port"`

	MaxPacketSize  int           `json:"max_packet_size"`
	FaultThreshold time.Duration `json:"fault_threshold"`

	// AckTimeout is the floor for acknowledgement waits on distance moves.
	AckTimeout time.Duration `json:"ack_timeout"`

	Query config.QueryTimeouts `json:"query_timeouts"`
}

// NewSparkiDriver creates a Sparki driver bound to the robot's UDP endpoint.
// Configuration problems (no name and no IP, unresolvable name) surface here,
// before any datagram is sent.
func NewSparkiDriver(robot *model.Robot, cfg *config.RobotConfig, logger *zap.Logger) (driver.RobotDriver, error) {
	sparkiConfig := &SparkiConfig{
		Name:           robot.Name,
		IP:             robot.IP,
		Port:           robot.Port,
		MaxPacketSize:  cfg.MaxPacketSize,
		FaultThreshold: cfg.FaultThreshold,
		AckTimeout:     cfg.AckTimeout,
		Query:          cfg.Query,
	}

	conn, err := protocol.NewUDPConnection(&protocol.UDPConfig{
		Name:           sparkiConfig.Name,
		IP:             sparkiConfig.IP,
		Port:           sparkiConfig.Port,
		MaxPacketSize:  sparkiConfig.MaxPacketSize,
		FaultThreshold: sparkiConfig.FaultThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("sparki connection setup: %w", err)
	}

	robotLogger := utils.NewRobotLogger(logger, robot.Name, string(robot.Model))

	return &SparkiDriver{
		config: sparkiConfig,
		conn:   conn,
		logger: robotLogger,
		robotInfo: driver.RobotInfo{
			Model:        "Sparki",
			Manufacturer: "ArcBotics",
			Transport:    "udp",
			Address:      conn.RemoteAddr(),
		},
	}, nil
}

// newDriverWithConnection wires a driver onto an existing connection.
// Used by tests to substitute a scripted link.
func newDriverWithConnection(conn protocol.Connection, cfg *SparkiConfig, logger *zap.Logger) *SparkiDriver {
	return &SparkiDriver{
		config: cfg,
		conn:   conn,
		logger: utils.NewRobotLogger(logger, cfg.Name, string(model.RobotModelSparki)),
		robotInfo: driver.RobotInfo{
			Model:        "Sparki",
			Manufacturer: "ArcBotics",
			Transport:    "udp",
			Address:      conn.RemoteAddr(),
		},
	}
}

// Connect opens the UDP session and halts the robot. Sending an unconditional
// stop on connect leaves the robot in a known state even after a host crash
// mid-motion.
func (d *SparkiDriver) Connect(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.isConnected {
		return nil
	}

	if err := d.conn.Open(ctx); err != nil {
		d.logger.LogConnection("connect", false, err)
		return fmt.Errorf("failed to open sparki connection: %w", err)
	}

	if err := d.conn.Send(ctx, SPARKI_COMMANDS.STOP); err != nil {
		d.conn.Close()
		d.logger.LogConnection("connect", false, err)
		return fmt.Errorf("failed to halt robot on connect: %w", err)
	}

	d.isConnected = true
	// The endpoint is only resolved by Open
	d.robotInfo.Address = d.conn.RemoteAddr()
	d.logger.LogConnection("connect", true, nil)
	return nil
}

// Disconnect closes the UDP session
func (d *SparkiDriver) Disconnect() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.isConnected {
		return nil
	}

	err := d.conn.Close()
	d.isConnected = false
	d.logger.LogConnection("disconnect", err == nil, err)
	return err
}

// IsConnected returns connection status
func (d *SparkiDriver) IsConnected() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.isConnected && d.conn.IsOpen()
}

// Reset reopens the link after a communication fault and clears the timeout
// history. The robot itself may still need a physical reset.
func (d *SparkiDriver) Reset(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.conn.Reset(ctx); err != nil {
		d.logger.LogConnection("reset", false, err)
		return fmt.Errorf("failed to reset sparki connection: %w", err)
	}

	d.isConnected = true
	d.logger.LogConnection("reset", true, nil)
	return nil
}

// GetRobotInfo returns static robot information
func (d *SparkiDriver) GetRobotInfo() driver.RobotInfo {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.robotInfo
}

// Stats returns aggregate link and command statistics
func (d *SparkiDriver) Stats() driver.LinkStats {
	connStats := d.conn.Stats()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	return driver.LinkStats{
		CommandCount:    d.commandCount,
		CommandTime:     d.commandTime,
		PacketsSent:     connStats.PacketsSent,
		PacketsReceived: connStats.PacketsReceived,
		TimeoutCount:    connStats.TimeoutCount,
		TimeoutAverage:  connStats.TimeoutAverage,
		LastActivity:    connStats.LastActivity,
		IsConnected:     connStats.IsConnected,
		Faulted:         connStats.Faulted,
	}
}

// Move drives the wheels by keyword: forward/f, backward/b or stop/s.
// Fire-and-forget, the robot keeps moving until told otherwise.
func (d *SparkiDriver) Move(ctx context.Context, direction string) error {
	code, ok := moveKeywords[strings.ToLower(direction)]
	if !ok {
		return fmt.Errorf("%w: linear movement must be forward, backward or stop, got %q", driver.ErrInvalidParameter, direction)
	}
	return d.fire(ctx, "move", SPARKI_COMMANDS.MOVE_KEYWORD+strconv.Itoa(code))
}

// MoveDistance drives a measured distance in cm (negative for backward) and
// waits for the robot's acknowledgement. The wait scales with the distance:
// max(|cm| * 0.5, 1) seconds.
func (d *SparkiDriver) MoveDistance(ctx context.Context, cm float64) error {
	msg := SPARKI_COMMANDS.MOVE_DISTANCE + formatNumber(cm)
	_, err := d.execute(ctx, "move_distance", msg, d.ackTimeout(math.Abs(cm)*0.5))
	return err
}

// Turn rotates by keyword: right/r, left/l or stop/s. Fire-and-forget.
func (d *SparkiDriver) Turn(ctx context.Context, direction string) error {
	code, ok := turnKeywords[strings.ToLower(direction)]
	if !ok {
		return fmt.Errorf("%w: turn must be right, left or stop, got %q", driver.ErrInvalidParameter, direction)
	}
	return d.fire(ctx, "turn", SPARKI_COMMANDS.TURN_KEYWORD+strconv.Itoa(code))
}

// TurnAngle rotates a measured angle in degrees (negative for left) and waits
// for acknowledgement, max(|degrees| * 0.05, 1) seconds.
func (d *SparkiDriver) TurnAngle(ctx context.Context, degrees float64) error {
	msg := SPARKI_COMMANDS.TURN_ANGLE + formatNumber(degrees)
	_, err := d.execute(ctx, "turn_angle", msg, d.ackTimeout(math.Abs(degrees)*0.05))
	return err
}

// Stop halts all movement unconditionally
func (d *SparkiDriver) Stop(ctx context.Context) error {
	return d.fire(ctx, "stop", SPARKI_COMMANDS.STOP)
}

// Gripper operates the gripper by keyword: open/o, close/c or stop/s.
func (d *SparkiDriver) Gripper(ctx context.Context, action string) error {
	code, ok := gripperKeywords[strings.ToLower(action)]
	if !ok {
		return fmt.Errorf("%w: gripper action must be open, close or stop, got %q", driver.ErrInvalidParameter, action)
	}
	return d.fire(ctx, "gripper", SPARKI_COMMANDS.GRIPPER_KEY+strconv.Itoa(code))
}

// GripperDistance opens (positive) or closes (negative) the gripper by a
// distance in cm and waits for acknowledgement, max(|cm|, 1) seconds.
func (d *SparkiDriver) GripperDistance(ctx context.Context, cm float64) error {
	msg := SPARKI_COMMANDS.GRIPPER_DIST + formatNumber(cm)
	_, err := d.execute(ctx, "gripper_distance", msg, d.ackTimeout(math.Abs(cm)))
	return err
}

// Motors sets the two wheel speeds independently in [-100, 100]. Values
// outside the range are clamped. A nil speed means "leave that motor
// unchanged" and is encoded with the firmware's unspecified marker.
func (d *SparkiDriver) Motors(ctx context.Context, left, right *int) error {
	msg := SPARKI_COMMANDS.MOTORS + encodeMotorSpeed(left) + "." + encodeMotorSpeed(right)
	return d.fire(ctx, "motors", msg)
}

// Servo points the head servo to an angle in degrees
func (d *SparkiDriver) Servo(ctx context.Context, angle int) error {
	return d.fire(ctx, "servo", SPARKI_COMMANDS.SERVO+strconv.Itoa(angle))
}

// LED sets the RGB status LED; rgb must carry at least red, green and blue
func (d *SparkiDriver) LED(ctx context.Context, rgb []int) error {
	if len(rgb) < 3 {
		return fmt.Errorf("%w: LED needs red, green and blue values", driver.ErrInvalidParameter)
	}
	msg := SPARKI_COMMANDS.LED + "r" + strconv.Itoa(rgb[0]) + "g" + strconv.Itoa(rgb[1]) + "b" + strconv.Itoa(rgb[2])
	return d.fire(ctx, "led", msg)
}

// Beep plays a tone at frequency Hz for duration seconds
func (d *SparkiDriver) Beep(ctx context.Context, frequency int, duration float64) error {
	msg := SPARKI_COMMANDS.BEEP + "f" + strconv.Itoa(frequency) + "d" + formatDuration(duration)
	return d.fire(ctx, "beep", msg)
}

// NoBeep silences the buzzer
func (d *SparkiDriver) NoBeep(ctx context.Context) error {
	return d.fire(ctx, "nobeep", SPARKI_COMMANDS.NOBEEP)
}

// Ping reads the ultrasonic range finder in cm. Negative or unparsable
// replies degrade to the NoReading sentinel.
func (d *SparkiDriver) Ping(ctx context.Context) (float64, error) {
	reply, err := d.execute(ctx, "ping", SPARKI_COMMANDS.QUERY_PING, d.queryTimeout(d.config.Query.Ping, 500*time.Millisecond))
	if err != nil {
		return 0, err
	}

	distance, perr := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if perr != nil {
		d.logger.Warn("Non-numeric ping reply", zap.String("reply", reply))
		return driver.NoReading, nil
	}
	if distance < 0 {
		return driver.NoReading, nil
	}
	return distance, nil
}

// Lidar reads the laser range finder in cm. The firmware reports tenths of a
// cm; a raw reply of -13 means the sensor never booted, which is a hardware
// fault rather than a bad reading.
func (d *SparkiDriver) Lidar(ctx context.Context) (float64, error) {
	reply, err := d.execute(ctx, "lidar", SPARKI_COMMANDS.QUERY_LIDAR, d.queryTimeout(d.config.Query.Lidar, 100*time.Millisecond))
	if err != nil {
		return 0, err
	}

	raw, perr := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if perr != nil {
		d.logger.Warn("Non-numeric lidar reply", zap.String("reply", reply))
		return driver.NoReading, nil
	}
	if raw == lidarNotBooted {
		return 0, fmt.Errorf("%w: lidar did not boot", driver.ErrHardwareNotReady)
	}

	distance := raw / 10.0
	if distance < 0 {
		return driver.NoReading, nil
	}
	return distance, nil
}

// Line reads the five reflectance sensors as a map keyed by position
func (d *SparkiDriver) Line(ctx context.Context) (map[string]float64, error) {
	values, err := d.queryVector(ctx, "line", SPARKI_COMMANDS.QUERY_LINE, d.queryTimeout(d.config.Query.Line, 100*time.Millisecond), len(lineLabels))
	if err != nil {
		return nil, err
	}
	return zipLabels(lineLabels, values), nil
}

// LineValues reads the reflectance sensors as an ordered slice
func (d *SparkiDriver) LineValues(ctx context.Context) ([]float64, error) {
	return d.queryVector(ctx, "line", SPARKI_COMMANDS.QUERY_LINE, d.queryTimeout(d.config.Query.Line, 100*time.Millisecond), len(lineLabels))
}

// Light reads the three ambient light sensors as a map keyed by position
func (d *SparkiDriver) Light(ctx context.Context) (map[string]float64, error) {
	values, err := d.queryVector(ctx, "light", SPARKI_COMMANDS.QUERY_LIGHT, d.queryTimeout(d.config.Query.Light, 100*time.Millisecond), len(lightLabels))
	if err != nil {
		return nil, err
	}
	return zipLabels(lightLabels, values), nil
}

// LightValues reads the light sensors as an ordered slice
func (d *SparkiDriver) LightValues(ctx context.Context) ([]float64, error) {
	return d.queryVector(ctx, "light", SPARKI_COMMANDS.QUERY_LIGHT, d.queryTimeout(d.config.Query.Light, 100*time.Millisecond), len(lightLabels))
}

// Accel reads the accelerometer in g. The firmware reports milli-g.
func (d *SparkiDriver) Accel(ctx context.Context) (driver.Vector3, error) {
	values, err := d.queryVector(ctx, "accel", SPARKI_COMMANDS.QUERY_ACCEL, d.queryTimeout(d.config.Query.Accel, 50*time.Millisecond), 3)
	if err != nil {
		return driver.Vector3{}, err
	}
	return toVector3(values), nil
}

// Mag reads the magnetometer in gauss. The firmware reports milli-gauss.
func (d *SparkiDriver) Mag(ctx context.Context) (driver.Vector3, error) {
	values, err := d.queryVector(ctx, "mag", SPARKI_COMMANDS.QUERY_MAG, d.queryTimeout(d.config.Query.Mag, 50*time.Millisecond), 3)
	if err != nil {
		return driver.Vector3{}, err
	}
	return toVector3(values), nil
}

// Battery reads the battery voltage
func (d *SparkiDriver) Battery(ctx context.Context) (float64, error) {
	reply, err := d.execute(ctx, "battery", SPARKI_COMMANDS.QUERY_BATTERY, d.queryTimeout(d.config.Query.Battery, time.Second))
	if err != nil {
		return 0, err
	}

	voltage, perr := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if perr != nil {
		d.logger.Warn("Non-numeric battery reply", zap.String("reply", reply))
		return driver.NoReading, nil
	}
	return voltage, nil
}

// SetCommTimeout adjusts the robot's on-device communication watchdog. The
// firmware stops the motors when no datagram arrives within this window.
func (d *SparkiDriver) SetCommTimeout(ctx context.Context, seconds float64) error {
	// The firmware treats 0 ms as "never stop", so reject anything that
	// would encode to i0
	ms := int(math.Round(seconds * 1000))
	if ms <= 0 {
		return fmt.Errorf("%w: communication timeout must be at least 1ms", driver.ErrInvalidParameter)
	}
	msg := SPARKI_COMMANDS.COMM_TIMEOUT + strconv.Itoa(ms)
	return d.fire(ctx, "comm_timeout", msg)
}
