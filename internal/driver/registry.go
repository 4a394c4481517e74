// internal/driver/registry.go
package driver

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"sparki-service/internal/config"
	"sparki-service/internal/model"
	"sparki-service/pkg/driver"
)

// DriverFactory creates robot drivers
type DriverFactory func(robot *model.Robot, cfg *config.RobotConfig, logger *zap.Logger) (driver.RobotDriver, error)

// Registry manages robot driver registration and creation
type Registry struct {
	drivers map[model.RobotModel]DriverFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates a new driver registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		drivers: make(map[model.RobotModel]DriverFactory),
		logger:  logger,
	}
}

// Register registers a driver factory for a robot model
func (r *Registry) Register(robotModel model.RobotModel, factory DriverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[robotModel] = factory
	r.logger.Info("Driver registered",
		zap.String("robot_model", string(robotModel)),
	)
}

// CreateDriver creates a driver instance for the robot
func (r *Registry) CreateDriver(robot *model.Robot, cfg *config.RobotConfig) (driver.RobotDriver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, exists := r.drivers[robot.Model]; exists {
		return factory(robot, cfg, r.logger)
	}

	// Fall back to the generic driver
	if factory, exists := r.drivers[model.RobotModelGeneric]; exists {
		return factory(robot, cfg, r.logger)
	}

	return nil, fmt.Errorf("no driver found for robot model %s", robot.Model)
}

// ListDrivers returns all registered robot models
func (r *Registry) ListDrivers() []model.RobotModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]model.RobotModel, 0, len(r.drivers))
	for robotModel := range r.drivers {
		models = append(models, robotModel)
	}
	return models
}

// IsSupported checks if a robot model has a registered driver
func (r *Registry) IsSupported(robotModel model.RobotModel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.drivers[robotModel]; exists {
		return true
	}
	_, exists := r.drivers[model.RobotModelGeneric]
	return exists
}
