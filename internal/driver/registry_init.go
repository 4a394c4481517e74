// internal/driver/registry_init.go
package driver

import (
	"go.uber.org/zap"

	"sparki-service/internal/driver/sparki"
	"sparki-service/internal/model"
)

// RegisterDefaultDrivers registers all default robot drivers
func RegisterDefaultDrivers(registry *Registry, logger *zap.Logger) {
	registry.Register(model.RobotModelSparki, sparki.NewSparkiDriver)

	// The Sparki driver doubles as the generic fallback until another robot
	// needs its own command set.
	registry.Register(model.RobotModelGeneric, sparki.NewSparkiDriver)

	logger.Info("Robot drivers registered",
		zap.Int("models", 2),
	)
}
