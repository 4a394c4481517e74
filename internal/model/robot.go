// internal/model/robot.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RobotModel represents supported robot models
type RobotModel string

const (
	RobotModelSparki  RobotModel = "SPARKI"
	RobotModelGeneric RobotModel = "GENERIC"
)

// RobotStatus represents the current status of the robot link
type RobotStatus string

const (
	RobotStatusOnline     RobotStatus = "ONLINE"
	RobotStatusOffline    RobotStatus = "OFFLINE"
	RobotStatusConnecting RobotStatus = "CONNECTING"
	RobotStatusFaulted    RobotStatus = "FAULTED"
)

// JSONObject is a generic JSON payload stored in Postgres jsonb columns
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Robot represents a robot known to the service
type Robot struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"` // mDNS name, e.g. "sparki.local"
	IP          string      `json:"ip"`
	Port        int         `json:"port"`
	Model       RobotModel  `json:"model"`
	Status      RobotStatus `json:"status"`
	ConnectedAt *time.Time  `json:"connected_at,omitempty"`
	LastPing    *time.Time  `json:"last_ping,omitempty"`
}

// Address returns the robot endpoint as host:port text
func (r *Robot) Address() string {
	host := r.IP
	if host == "" {
		host = r.Name
	}
	return fmt.Sprintf("%s:%d", host, r.Port)
}
