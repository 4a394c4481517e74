// internal/service/discovery_service.go
package service

import (
	"context"

	"go.uber.org/zap"

	"sparki-service/internal/config"
	"sparki-service/internal/discovery"
	"sparki-service/internal/discovery/udp"
	"sparki-service/internal/utils"
)

// DiscoveryService coordinates robot discovery across scanner types
type DiscoveryService struct {
	scanners *discovery.ScannerManager
	logger   *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the default scanners
func NewDiscoveryService(cfg *config.Config, logger *zap.Logger) *DiscoveryService {
	manager := discovery.NewScannerManager(logger)

	manager.RegisterScanner(udp.NewScanner(logger, &udp.Config{
		ScanTimeout:   cfg.Discovery.ScanTimeout,
		NetworkRanges: cfg.Discovery.NetworkRanges,
		RobotPort:     cfg.Robot.Port,
	}))

	return &DiscoveryService{
		scanners: manager,
		logger:   utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// Scan sweeps all available scanners for robots
func (ds *DiscoveryService) Scan(ctx context.Context) ([]*discovery.DiscoveredRobot, error) {
	robots, err := ds.scanners.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	ds.logger.Info("Discovery scan finished", zap.Int("robots_found", len(robots)))
	return robots, nil
}

// ScanByType runs one specific scanner
func (ds *DiscoveryService) ScanByType(ctx context.Context, scannerType string) ([]*discovery.DiscoveredRobot, error) {
	return ds.scanners.ScanByType(ctx, scannerType)
}

// AvailableScanners lists scanner types ready to run
func (ds *DiscoveryService) AvailableScanners() []string {
	return ds.scanners.GetAvailableScanners()
}
