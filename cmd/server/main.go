// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sparki-service/internal/config"
	"sparki-service/internal/database"
	"sparki-service/internal/driver"
	"sparki-service/internal/handler"
	"sparki-service/internal/repository"
	"sparki-service/internal/routes"
	"sparki-service/internal/service"
	"sparki-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Services
	robotService     *service.RobotService
	discoveryService *service.DiscoveryService

	// Repositories
	commandRepo repository.CommandRepository

	// Handlers with background loops
	wsHandler *handler.WebSocketHandler
	eventBus  *handler.EventBus

	// Driver registry
	driverRegistry *driver.Registry

	// Cancels the background loops on shutdown
	stopBackground context.CancelFunc
}

func main() {
	// Initialize application
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create service logger
	serviceLogger := utils.NewServiceLogger(logger, "sparki-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	// Initialize components
	if err := app.initializeHistory(); err != nil {
		return nil, fmt.Errorf("failed to initialize command history: %w", err)
	}

	if err := app.initializeDriverRegistry(); err != nil {
		return nil, fmt.Errorf("failed to initialize driver registry: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeHistory sets up the optional Postgres command history
func (app *Application) initializeHistory() error {
	if !app.config.History.Enabled {
		app.logger.Info("Command history disabled, running without persistence")
		return nil
	}

	db, err := database.NewConnection(&app.config.History, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.commandRepo = repository.NewCommandRepository(db, app.logger)

	app.logger.Info("Command history initialized")
	return nil
}

// initializeDriverRegistry sets up the robot driver registry
func (app *Application) initializeDriverRegistry() error {
	app.driverRegistry = driver.NewRegistry(app.logger)

	// Register all supported drivers
	driver.RegisterDefaultDrivers(app.driverRegistry, app.logger)

	app.logger.Info("Driver registry initialized",
		zap.Int("registered_drivers", len(app.driverRegistry.ListDrivers())),
	)
	return nil
}

// initializeServices creates service instances and the event pipeline
func (app *Application) initializeServices() error {
	robotService, err := service.NewRobotService(
		app.driverRegistry,
		app.commandRepo,
		app.config,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create robot service: %w", err)
	}
	app.robotService = robotService

	app.discoveryService = service.NewDiscoveryService(app.config, app.logger)

	// Event pipeline: service events flow through the relay to the bus
	// and the websocket clients
	app.wsHandler = handler.NewWebSocketHandler(
		app.robotService,
		app.config.Robot.TelemetryInterval,
		app.logger,
	)
	app.eventBus = handler.NewEventBus(app.logger)
	app.robotService.SetEventPublisher(
		handler.NewRobotEventRelay(app.wsHandler, app.eventBus, app.logger),
	)

	app.logger.Info("Services initialized")
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.robotService,
		app.discoveryService,
		app.commandRepo,
		app.wsHandler,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices starts the event bus, telemetry pump, and
// history cleanup
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	go app.eventBus.Start()
	go app.wsHandler.StartTelemetryPump(ctx)

	if app.commandRepo != nil {
		go app.startHistoryCleanup(ctx)
	}

	app.logger.Info("Background services started")
}

// connectRobot attempts the initial robot connection. Failure is not
// fatal; the link can be opened later through the API.
func (app *Application) connectRobot() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.robotService.Connect(ctx); err != nil {
		app.logger.Warn("Initial robot connection failed, connect via API when the robot is up",
			zap.Error(err),
		)
	}
}

// startHistoryCleanup periodically removes old command records
func (app *Application) startHistoryCleanup(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("History cleanup started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)

			oldDate := time.Now().AddDate(0, 0, -30)
			deleted, err := app.commandRepo.DeleteOldCommands(cleanupCtx, oldDate)
			if err != nil {
				app.logger.Error("Failed to cleanup old commands", zap.Error(err))
			} else if deleted > 0 {
				app.logger.Info("Cleaned up old commands", zap.Int64("deleted", deleted))
			}

			cancel()
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "sparki-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Stop background loops
	if app.stopBackground != nil {
		app.stopBackground()
	}

	// Close the robot link so the bridge's watchdog stops the motors
	if app.robotService.IsConnected() {
		if err := app.robotService.Disconnect(); err != nil {
			app.logger.Error("Robot disconnect error", zap.Error(err))
		}
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Close database connection
	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	// Start server in goroutine
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Start background services
	app.startBackgroundServices()

	// Try to bring the robot link up
	go app.connectRobot()

	// Wait for interrupt signal
	app.waitForShutdown()

	return nil
}
