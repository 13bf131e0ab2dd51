// File: cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/notify-service/internal/config"
	"github.com/smartdevs17/notify-service/internal/metrics"
	"github.com/smartdevs17/notify-service/internal/monitor"
	"github.com/smartdevs17/notify-service/internal/notification"
	"github.com/smartdevs17/notify-service/internal/server"
	"github.com/smartdevs17/notify-service/internal/storage"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config         *config.Config
	logger         *logrus.Logger
	storage        storage.Storage
	metricsManager *metrics.Manager
	notifier       *notification.Service
	monitor        *monitor.AlertMonitor
	server         *server.HTTPServer
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize logger
	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize components
	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	// Metrics first so storage operations are instrumented from the start
	app.metricsManager = metrics.NewManager()

	// Initialize storage
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize notification service
	if err := app.initializeNotifier(); err != nil {
		return fmt.Errorf("failed to initialize notification service: %w", err)
	}

	// Initialize alert monitor
	if err := app.initializeMonitor(); err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}

	// Initialize HTTP server
	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage initializes the storage layer
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing storage layer")

	store, err := storage.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	app.storage = storage.NewStorageWithMetrics(store, app.metricsManager)

	// Connect to storage
	if err := app.storage.Connect(); err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	// Run migrations
	if err := app.storage.Migrate(); err != nil {
		return fmt.Errorf("failed to run storage migrations: %w", err)
	}

	app.logger.Info("Storage layer initialized successfully")
	return nil
}

// initializeNotifier initializes the notification service
func (app *Application) initializeNotifier() error {
	app.logger.Info("Initializing notification service")

	seed := app.config.Notifications.ToModel()
	app.notifier = notification.NewService(app.storage, seed, app.metricsManager, app.config.Logging.Level)

	// Start notification service
	if err := app.notifier.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start notification service: %w", err)
	}

	app.logger.Info("Notification service initialized successfully")
	return nil
}

// initializeMonitor initializes the alert monitor
func (app *Application) initializeMonitor() error {
	app.logger.Info("Initializing alert monitor")

	monitorCfg := &monitor.MonitorConfig{
		HeartbeatInterval: app.config.Monitor.HeartbeatInterval,
	}

	app.monitor = monitor.NewAlertMonitor(app.notifier, monitorCfg, app.metricsManager)

	app.logger.Info("Alert monitor initialized successfully")
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	serverCfg := &server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}

	srv, err := server.NewHTTPServer(serverCfg, app.storage, app.monitor, app.notifier, app.metricsManager)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	app.server = srv

	app.logger.Info("HTTP server initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting notification service")

	// Start HTTP server
	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// Start alert monitor
	if err := app.monitor.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start alert monitor: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"storage":        app.config.Storage.Type,
		"channels":       app.config.Notifications.Channels,
	}).Info("Notification service started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping notification service")

	// Cancel context to stop all components
	app.cancel()

	// Stop components in reverse order
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithField("error", err.Error()).Error("Failed to stop HTTP server")
		}
	}

	if app.monitor != nil {
		if err := app.monitor.Stop(); err != nil {
			app.logger.WithField("error", err.Error()).Error("Failed to stop alert monitor")
		}
	}

	if app.notifier != nil {
		if err := app.notifier.Stop(); err != nil {
			app.logger.WithField("error", err.Error()).Error("Failed to stop notification service")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithField("error", err.Error()).Error("Failed to close storage")
		}
	}

	app.logger.Info("Notification service stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "notifier",
	Short:   "Notification and alerting service",
	Long:    `A notification service that dispatches alerts to log, Slack, email, and webhook channels, with cooldown and hourly rate limiting, durable alert history, and resource/service threshold monitors.`,
	Version: AppVersion,
	RunE:    runNotifier,
}

// runNotifier is the main command to run the notification service
func runNotifier(cmd *cobra.Command, args []string) error {
	// Load configuration
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create application
	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	// Start application
	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	// Stop application
	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("notify-service %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Channels: %v\n", cfg.Notifications.Channels)
		fmt.Printf("Cooldown: %ds, max %d alerts/hour\n", cfg.Notifications.AlertCooldown, cfg.Notifications.MaxAlertsPerHour)

		return nil
	},
}

// testCmd exercises the configured storage and channels end to end
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test storage connectivity and notification delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Test storage
		fmt.Printf("Testing storage connection (%s)...\n", cfg.Storage.Type)
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to run storage migrations: %w", err)
		}
		fmt.Println("✓ Storage connection successful")

		// Dispatch a test alert through the full pipeline
		fmt.Println("Dispatching test alert...")
		svc := notification.NewService(store, cfg.Notifications.ToModel(), nil, cfg.Logging.Level)
		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start notification service: %w", err)
		}
		defer svc.Stop()

		response, err := svc.SendTest(ctx)
		if err != nil {
			return fmt.Errorf("failed to send test alert: %w", err)
		}

		if response.Success {
			fmt.Printf("✓ Test alert delivered to: %v\n", response.SentTo)
			if len(response.FailedTo) > 0 {
				fmt.Printf("  Some channels failed: %v\n", response.FailedTo)
			}
		} else {
			fmt.Printf("✗ Test alert failed: %s (failed channels: %v)\n", response.Message, response.FailedTo)
		}

		fmt.Println("\nConnectivity test complete")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	// Add persistent flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
