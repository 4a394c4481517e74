// internal/handler/robot_handler.go
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparki-service/internal/service"
	"sparki-service/internal/utils"
	"sparki-service/pkg/driver"
)

// RobotHandler handles robot control HTTP requests
type RobotHandler struct {
	robotService *service.RobotService
	logger       *utils.ServiceLogger
}

// NewRobotHandler creates a new robot handler
func NewRobotHandler(robotService *service.RobotService, logger *zap.Logger) *RobotHandler {
	return &RobotHandler{
		robotService: robotService,
		logger:       utils.NewServiceLogger(logger, "robot-handler"),
	}
}

// RegisterRoutes registers robot control routes
func (h *RobotHandler) RegisterRoutes(router *gin.RouterGroup) {
	robot := router.Group("/robot")
	{
		robot.GET("", h.GetRobot)
		robot.GET("/stats", h.GetStats)

		robot.POST("/connect", h.Connect)
		robot.POST("/disconnect", h.Disconnect)
		robot.POST("/reset", h.Reset)

		robot.POST("/move", h.Move)
		robot.POST("/turn", h.Turn)
		robot.POST("/stop", h.Stop)
		robot.POST("/gripper", h.Gripper)
		robot.POST("/motors", h.Motors)
		robot.POST("/servo", h.Servo)
		robot.POST("/led", h.LED)
		robot.POST("/beep", h.Beep)
		robot.POST("/nobeep", h.NoBeep)
		robot.POST("/comm-timeout", h.SetCommTimeout)

		sensors := robot.Group("/sensors")
		{
			sensors.GET("", h.GetSnapshot)
			sensors.GET("/ping", h.GetPing)
			sensors.GET("/lidar", h.GetLidar)
			sensors.GET("/line", h.GetLine)
			sensors.GET("/light", h.GetLight)
			sensors.GET("/accel", h.GetAccel)
			sensors.GET("/mag", h.GetMag)
			sensors.GET("/battery", h.GetBattery)
		}
	}
}

// Request payloads

// MoveRequest carries either a keyword direction or a distance in cm
type MoveRequest struct {
	Direction  string   `json:"direction,omitempty"`
	DistanceCm *float64 `json:"distance_cm,omitempty"`
}

// TurnRequest carries either a keyword direction or an angle in degrees
type TurnRequest struct {
	Direction string   `json:"direction,omitempty"`
	Degrees   *float64 `json:"degrees,omitempty"`
}

// GripperRequest carries either a keyword action or a distance in cm
type GripperRequest struct {
	Action     string   `json:"action,omitempty"`
	DistanceCm *float64 `json:"distance_cm,omitempty"`
}

// MotorsRequest carries independent wheel speeds; a missing speed leaves
// that motor unchanged
type MotorsRequest struct {
	Left  *int `json:"left,omitempty"`
	Right *int `json:"right,omitempty"`
}

// ServoRequest carries the head servo angle
type ServoRequest struct {
	Angle int `json:"angle"`
}

// LEDRequest carries RGB channel values
type LEDRequest struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

// BeepRequest carries tone parameters
type BeepRequest struct {
	Frequency int     `json:"frequency"`
	Duration  float64 `json:"duration"`
}

// CommTimeoutRequest carries the robot's watchdog window in seconds
type CommTimeoutRequest struct {
	Seconds float64 `json:"seconds" binding:"required"`
}

// GetRobot returns robot state and link diagnostics
func (h *RobotHandler) GetRobot(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Robot status retrieved", h.robotService.Status())
}

// GetStats returns link statistics
func (h *RobotHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Link statistics retrieved", h.robotService.Status().Stats)
}

// Connect opens the robot link
func (h *RobotHandler) Connect(c *gin.Context) {
	if err := h.robotService.Connect(c.Request.Context()); err != nil {
		h.respondCommandError(c, "Failed to connect to robot", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Robot connected", h.robotService.Robot())
}

// Disconnect closes the robot link
func (h *RobotHandler) Disconnect(c *gin.Context) {
	if err := h.robotService.Disconnect(); err != nil {
		h.respondCommandError(c, "Failed to disconnect robot", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Robot disconnected", nil)
}

// Reset reopens the link after a communication fault
func (h *RobotHandler) Reset(c *gin.Context) {
	if err := h.robotService.Reset(c.Request.Context()); err != nil {
		h.respondCommandError(c, "Failed to reset robot link", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Robot link reset", h.robotService.Robot())
}

// Move drives the wheels, by keyword or by distance
func (h *RobotHandler) Move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch {
	case req.DistanceCm != nil:
		err = h.robotService.MoveDistance(c.Request.Context(), *req.DistanceCm)
	case req.Direction != "":
		err = h.robotService.Move(c.Request.Context(), req.Direction)
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, "Either direction or distance_cm is required", nil)
		return
	}

	if err != nil {
		h.respondCommandError(c, "Move command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Move command accepted", nil)
}

// Turn rotates the robot, by keyword or by angle
func (h *RobotHandler) Turn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch {
	case req.Degrees != nil:
		err = h.robotService.TurnAngle(c.Request.Context(), *req.Degrees)
	case req.Direction != "":
		err = h.robotService.Turn(c.Request.Context(), req.Direction)
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, "Either direction or degrees is required", nil)
		return
	}

	if err != nil {
		h.respondCommandError(c, "Turn command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Turn command accepted", nil)
}

// Stop halts all movement
func (h *RobotHandler) Stop(c *gin.Context) {
	if err := h.robotService.Stop(c.Request.Context()); err != nil {
		h.respondCommandError(c, "Stop command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Robot stopped", nil)
}

// Gripper operates the gripper, by keyword or by distance
func (h *RobotHandler) Gripper(c *gin.Context) {
	var req GripperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch {
	case req.DistanceCm != nil:
		err = h.robotService.GripperDistance(c.Request.Context(), *req.DistanceCm)
	case req.Action != "":
		err = h.robotService.Gripper(c.Request.Context(), req.Action)
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, "Either action or distance_cm is required", nil)
		return
	}

	if err != nil {
		h.respondCommandError(c, "Gripper command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Gripper command accepted", nil)
}

// Motors sets raw wheel speeds
func (h *RobotHandler) Motors(c *gin.Context) {
	var req MotorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.Motors(c.Request.Context(), req.Left, req.Right); err != nil {
		h.respondCommandError(c, "Motors command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Motors command accepted", nil)
}

// Servo points the head servo
func (h *RobotHandler) Servo(c *gin.Context) {
	var req ServoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.Servo(c.Request.Context(), req.Angle); err != nil {
		h.respondCommandError(c, "Servo command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Servo command accepted", nil)
}

// LED sets the RGB status LED
func (h *RobotHandler) LED(c *gin.Context) {
	var req LEDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.LED(c.Request.Context(), []int{req.Red, req.Green, req.Blue}); err != nil {
		h.respondCommandError(c, "LED command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "LED command accepted", nil)
}

// Beep plays a tone
func (h *RobotHandler) Beep(c *gin.Context) {
	req := BeepRequest{Frequency: 110, Duration: 0.2}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.Beep(c.Request.Context(), req.Frequency, req.Duration); err != nil {
		h.respondCommandError(c, "Beep command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Beep command accepted", nil)
}

// NoBeep silences the buzzer
func (h *RobotHandler) NoBeep(c *gin.Context) {
	if err := h.robotService.NoBeep(c.Request.Context()); err != nil {
		h.respondCommandError(c, "NoBeep command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Buzzer silenced", nil)
}

// SetCommTimeout adjusts the robot's on-device watchdog
func (h *RobotHandler) SetCommTimeout(c *gin.Context) {
	var req CommTimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.robotService.SetCommTimeout(c.Request.Context(), req.Seconds); err != nil {
		h.respondCommandError(c, "Comm timeout command failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Communication timeout updated", nil)
}

// GetSnapshot runs one full round of sensor queries
func (h *RobotHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.robotService.Snapshot(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Sensor snapshot failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Sensor snapshot retrieved", snapshot)
}

// GetPing reads the ultrasonic range finder
func (h *RobotHandler) GetPing(c *gin.Context) {
	value, err := h.robotService.Ping(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Ping query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Ping retrieved", gin.H{"distance_cm": value})
}

// GetLidar reads the laser range finder
func (h *RobotHandler) GetLidar(c *gin.Context) {
	value, err := h.robotService.Lidar(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Lidar query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Lidar retrieved", gin.H{"distance_cm": value})
}

// GetLine reads the reflectance sensors; ?as_list=true returns the raw order
func (h *RobotHandler) GetLine(c *gin.Context) {
	if asList(c) {
		values, err := h.robotService.LineValues(c.Request.Context())
		if err != nil {
			h.respondCommandError(c, "Line query failed", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Line sensors retrieved", gin.H{"values": values})
		return
	}

	values, err := h.robotService.Line(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Line query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Line sensors retrieved", values)
}

// GetLight reads the ambient light sensors; ?as_list=true returns the raw order
func (h *RobotHandler) GetLight(c *gin.Context) {
	if asList(c) {
		values, err := h.robotService.LightValues(c.Request.Context())
		if err != nil {
			h.respondCommandError(c, "Light query failed", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Light sensors retrieved", gin.H{"values": values})
		return
	}

	values, err := h.robotService.Light(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Light query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Light sensors retrieved", values)
}

// GetAccel reads the accelerometer
func (h *RobotHandler) GetAccel(c *gin.Context) {
	value, err := h.robotService.Accel(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Accelerometer query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Accelerometer retrieved", value)
}

// GetMag reads the magnetometer
func (h *RobotHandler) GetMag(c *gin.Context) {
	value, err := h.robotService.Mag(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Magnetometer query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Magnetometer retrieved", value)
}

// GetBattery reads the battery voltage
func (h *RobotHandler) GetBattery(c *gin.Context) {
	value, err := h.robotService.Battery(c.Request.Context())
	if err != nil {
		h.respondCommandError(c, "Battery query failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Battery retrieved", gin.H{"voltage": value})
}

// respondCommandError maps driver errors onto HTTP status codes
func (h *RobotHandler) respondCommandError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, driver.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, driver.ErrCommandRejected):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, driver.ErrReplyTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, driver.ErrLinkFault):
		status = http.StatusBadGateway
	case errors.Is(err, driver.ErrHardwareNotReady):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	utils.ErrorResponse(c, status, message, err)
}

func asList(c *gin.Context) bool {
	return strings.EqualFold(c.Query("as_list"), "true")
}
