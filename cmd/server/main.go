// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	_ "vx4-service/docs"
	"vx4-service/internal/config"
	"vx4-service/internal/discovery"
	"vx4-service/internal/driver/hanyoung"
	"vx4-service/internal/handler"
	"vx4-service/internal/protocol"
	"vx4-service/internal/routes"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config  *config.Config
	logger  *zap.Logger
	journal *zap.Logger
	server  *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	driver   *hanyoung.VX4Driver
	eventBus *handler.EventBus

	// Services
	controllerService *service.ControllerService
	discoveryService  *service.DiscoveryService
	monitorService    *service.MonitorService
}

// @title VX4 Controller Service API
// @version 1.0.0
// @description Reads process values and reads or changes set-points of Hanyoung NUX VX4 temperature controllers over a serial link

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "config file or directory (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	journal, err := utils.NewExchangeLogger(&cfg.Logging.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exchange log: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "vx4-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config:  cfg,
		logger:  logger,
		journal: journal,
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := app.initializeController(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize controller: %w", err)
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeController builds the serial transport and the VX4 driver on top of it
func (app *Application) initializeController() error {
	link, err := app.config.ToLinkConfig()
	if err != nil {
		return err
	}

	transport := protocol.NewSerialConnection(link, app.logger, app.journal)
	app.driver = hanyoung.NewVX4Driver(transport, app.logger)

	app.logger.Info("Controller initialized",
		zap.String("port", link.Port),
		zap.Int("baud_rate", link.BaudRate),
		zap.String("parity", link.Parity.String()),
		zap.String("backend", string(link.Backend)),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	app.eventBus = handler.NewEventBus(app.logger)
	app.eventBus.Start(app.ctx)

	app.controllerService = service.NewControllerService(
		app.driver,
		app.eventBus,
		&app.config.Controller,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(
		discovery.NewEnumeratorScanner(app.logger),
		app.driver,
		app.logger,
	)

	app.monitorService = service.NewMonitorService(
		app.controllerService,
		app.config.Controller.PollInterval,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.ctx,
		app.config,
		app.logger,
		app.controllerService,
		app.discoveryService,
		app.monitorService,
		app.eventBus,
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
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices opens the link when configured to and starts polling
func (app *Application) startBackgroundServices() {
	if app.config.Controller.AutoConnect {
		// a failed auto-connect leaves the service up; /controller/connect retries
		if err := app.controllerService.Connect(app.ctx); err != nil {
			app.logger.Warn("Auto-connect failed", zap.Error(err))
		}
	}

	if app.monitorService.Start(app.ctx) {
		app.logger.Info("Background services started")
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
	serviceLogger := utils.NewServiceLogger(app.logger, "vx4-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.monitorService.Stop()

	if app.controllerService.IsConnected() {
		if err := app.controllerService.Disconnect(ctx); err != nil {
			app.logger.Error("Serial link close error", zap.Error(err))
		}
	}

	// stops event forwarding and closes websocket clients
	app.cancel()
	app.eventBus.Wait()

	app.logger.Info("Application shutdown completed")

	_ = utils.CloseLogger(app.journal)
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
