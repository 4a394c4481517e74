// 📁 internal/discovery/scanner.go - Main Scanner Interface
package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sparki-service/internal/model"
)

// RobotScanner interface - Strategy Pattern
type RobotScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredRobot, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredRobot represents a robot endpoint found on the network
type DiscoveredRobot struct {
	IP         string           `json:"ip"`
	Port       int              `json:"port"`
	Model      model.RobotModel `json:"model"`
	Reply      string           `json:"reply"`
	Confidence float64          `json:"confidence"` // 0.0-1.0
	LatencyMs  float64          `json:"latency_ms"`
}

// ScannerManager manages all robot scanners - Facade Pattern
type ScannerManager struct {
	scanners map[string]RobotScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]RobotScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a robot scanner
func (sm *ScannerManager) RegisterScanner(scanner RobotScanner) {
	scannerType := scanner.GetScannerType()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll scans all registered scanner types
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredRobot, error) {
	var allRobots []*DiscoveredRobot

	for scannerType, scanner := range sm.scanners {
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		robots, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		allRobots = append(allRobots, robots...)
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("robots_found", len(robots)),
		)
	}

	return allRobots, nil
}

// ScanByType scans specific scanner type
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredRobot, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	return scanner.Scan(ctx)
}

// GetAvailableScanners returns list of available scanner types
func (sm *ScannerManager) GetAvailableScanners() []string {
	var available []string
	for scannerType, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	return available
}
