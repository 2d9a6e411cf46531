package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"puppychop-api/config"
	deliveryHttp "puppychop-api/internal/delivery/http"
	"puppychop-api/internal/delivery/http/handler"
	"puppychop-api/internal/delivery/http/middleware"
	"puppychop-api/internal/domain/validation"
	"puppychop-api/internal/infrastructure/cache"
	"puppychop-api/internal/infrastructure/database"
	"puppychop-api/internal/notification"
	"puppychop-api/internal/repository"
	"puppychop-api/internal/service"
	"puppychop-api/internal/usecase"
	"puppychop-api/pkg/jwt"
	"puppychop-api/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config          *config.Config
	DB              *gorm.DB
	RedisClient     *redis.Client
	ChangeNotifier  service.ChangeNotifier
	ReminderService *service.ReminderService
	Server          *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewConnection(cfg.DB, cfg.App.Env == "development")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	// Initialize Redis (optional)
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.RedisClient = redisClient
	} else {
		logrus.Info("Redis not configured, using in-process change feed")
	}

	if err := app.initialize(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", level)
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

// initialize wires every layer and builds the HTTP server
func (app *App) initialize() error {
	cfg := app.Config
	db := app.DB
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validators
	customValidator := validator.NewValidator()
	appointmentValidator := validation.NewAppointmentValidator(time.Now)

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)

	var submissionGuard service.SubmissionGuard
	if app.RedisClient != nil {
		app.ChangeNotifier = service.NewRedisChangeNotifier(app.RedisClient, log)
		submissionGuard = service.NewRedisSubmissionGuard(app.RedisClient)
	} else {
		app.ChangeNotifier = service.NewMemoryChangeNotifier()
		submissionGuard = service.NewMemorySubmissionGuard()
	}

	var sender notification.Sender
	if cfg.Twilio.Enabled() {
		sender = notification.NewWhatsAppSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppFrom, log)
		logrus.Info("Reminders delivered through Twilio WhatsApp")
	} else {
		sender = notification.NewLogSender(log)
	}

	if cfg.Reminder.Enabled {
		app.ReminderService = service.NewReminderService(db, log, appointmentRepo, sender, cfg.App.Timezone, cfg.Reminder.Schedule)
		if err := app.ReminderService.Start(); err != nil {
			return fmt.Errorf("failed to start reminder job: %w", err)
		}
		logrus.Infof("Reminder job scheduled: %s", cfg.Reminder.Schedule)
	}

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(
		db, log, appointmentRepo, auditService, app.ChangeNotifier, submissionGuard,
		appointmentValidator, cfg.App.Timezone, cfg.Reminder.Enabled,
	)
	authUsecase := usecase.NewAuthUsecase(db, log, auditService, jwtService, cfg.Staff.APIKeyHash)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	catalogHandler := handler.NewCatalogHandler()
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, catalogHandler, authHandler, auditLogHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stream subscribers end with the notifier, so close it before the
	// server waits on open connections.
	if app.ChangeNotifier != nil {
		if err := app.ChangeNotifier.Close(); err != nil {
			logrus.Errorf("Failed to close change feed: %v", err)
		}
	}

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background jobs and closes all connections
func (app *App) Close() {
	if app.ReminderService != nil {
		app.ReminderService.Stop()
	}

	if app.ChangeNotifier != nil {
		app.ChangeNotifier.Close()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
