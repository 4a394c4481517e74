// pkg/driver/types.go
package driver

import (
	"time"
)

// NoReading is the sentinel distance/level substituted for an unparsable or
// out-of-range sensor reply. Distinct from any value the robot can produce.
const NoReading = 54321

// Vector3 is a three-axis sensor reading (accelerometer, magnetometer)
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LinkStats aggregates protocol-level diagnostics for the robot link
type LinkStats struct {
	CommandCount    int64         `json:"command_count"`
	CommandTime     time.Duration `json:"command_time"`
	PacketsSent     int64         `json:"packets_sent"`
	PacketsReceived int64         `json:"packets_received"`
	TimeoutCount    int64         `json:"timeout_count"`
	// TimeoutAverage is the mean interval between recent timeouts in
	// seconds; 100 when no timeout has occurred yet.
	TimeoutAverage float64   `json:"timeout_average"`
	LastActivity   time.Time `json:"last_activity"`
	IsConnected    bool      `json:"is_connected"`
	Faulted        bool      `json:"faulted"`
}

// SensorSnapshot is one round of sensor queries, streamed over telemetry
type SensorSnapshot struct {
	Ping       float64            `json:"ping_cm"`
	Lidar      float64            `json:"lidar_cm"`
	Line       map[string]float64 `json:"line"`
	Light      map[string]float64 `json:"light"`
	Accel      Vector3            `json:"accel"`
	Mag        Vector3            `json:"mag"`
	Battery    float64            `json:"battery_v"`
	CapturedAt time.Time          `json:"captured_at"`
}

// RobotInfo contains basic robot information
type RobotInfo struct {
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Transport    string `json:"transport"`
	Address      string `json:"address"`
}
