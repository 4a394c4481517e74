// internal/driver/sparki/command.go
package sparki

// SPARKI_COMMANDS contains all wire command prefixes for the ESP32-Sparki
// bridge. Commands are plain UTF-8 text: a single-letter prefix followed by
// decimal parameters.
var SPARKI_COMMANDS = struct {
	// Movement
	MOVE_KEYWORD  string // + direction code (1, -1, 0)
	MOVE_DISTANCE string // + distance in cm, waits for ACK
	TURN_KEYWORD  string // + direction code (1, -1, 0)
	TURN_ANGLE    string // + angle in degrees, waits for ACK
	STOP          string

	// Actuators
	MOTORS       string // + "{left+100}.{right+100}"
	GRIPPER_KEY  string // + action code (1, -1, 0)
	GRIPPER_DIST string // + distance in cm, waits for ACK
	SERVO        string // + angle
	LED          string // + "r{R}g{G}b{B}"
	BEEP         string // + "f{frequency}d{duration}"
	NOBEEP       string

	// Sensor queries
	QUERY_PING    string
	QUERY_LIDAR   string
	QUERY_LINE    string
	QUERY_LIGHT   string
	QUERY_ACCEL   string
	QUERY_MAG     string
	QUERY_BATTERY string

	// Link configuration
	COMM_TIMEOUT string // + timeout in milliseconds
}{
	// Movement
	MOVE_KEYWORD:  "V",
	MOVE_DISTANCE: "v",
	TURN_KEYWORD:  "T",
	TURN_ANGLE:    "t",
	STOP:          "X",

	// Actuators
	MOTORS:       "m",
	GRIPPER_KEY:  "G",
	GRIPPER_DIST: "g",
	SERVO:        "s",
	LED:          "d",
	BEEP:         "e1",
	NOBEEP:       "e0",

	// Sensor queries
	QUERY_PING:    "p",
	QUERY_LIDAR:   "L",
	QUERY_LINE:    "n",
	QUERY_LIGHT:   "l",
	QUERY_ACCEL:   "a",
	QUERY_MAG:     "c",
	QUERY_BATTERY: "b",

	// Link configuration
	COMM_TIMEOUT: "i",
}

// Keyword forms accepted by Move, Turn and Gripper, matched case-insensitively
var (
	moveKeywords = map[string]int{
		"forward": 1, "f": 1,
		"backward": -1, "b": -1,
		"stop": 0, "s": 0,
	}

	turnKeywords = map[string]int{
		"right": 1, "r": 1,
		"left": -1, "l": -1,
		"stop": 0, "s": 0,
	}

	gripperKeywords = map[string]int{
		"open": 1, "o": 1,
		"close": -1, "c": -1,
		"stop": 0, "s": 0,
	}
)

// Semantic position names for the vector sensors, in wire order. Replies are
// zipped against these, truncated to the shorter side.
var (
	lineLabels  = []string{"edge left", "left", "center", "right", "edge right"}
	lightLabels = []string{"left", "center", "right"}
)

// motorUnspecified is the marker encoded for a missing motor speed, applied
// before the +100 wire offset. The firmware treats it as "leave unchanged".
const motorUnspecified = 400

// lidarNotBooted is the raw lidar reply meaning the sensor failed to
// initialize at power-on.
const lidarNotBooted = -13
