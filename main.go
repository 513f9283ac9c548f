package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/config"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/controllers"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/database"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/database/seeders"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/routes"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/notifications"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/websocket"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/storage"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load configuration
	config.LoadConfig()

	// Initialize logging
	setupLogging(config.AppConfig)

	// Connect to database
	database.Connect()

	if os.Getenv("SEED") == "true" {
		if err := seeders.SeedAll(database.DB); err != nil {
			logrus.WithError(err).Fatal("Seeding failed")
		}
	}
}

func main() {
	cfg := config.AppConfig
	stop := make(chan struct{})

	// Create WebSocket hub first
	wsHub := websocket.NewHub()
	go wsHub.Run(stop)

	notifService := notifications.NewService()
	notifService.SetWebSocketHub(wsHub)
	if cfg.UseRedisNotifications {
		notifService.StartWorker(stop)
	}

	engine := attendance.NewService(attendance.NewGormStore(database.DB),
		attendance.WithMinimumAttendance(cfg.MinimumAttendance),
		attendance.WithExamCategories(cfg.ExamCategories...),
		attendance.WithNow(func() time.Time { return time.Now().In(cfg.Location) }),
	)
	leaveService := services.NewLeaveService(engine, services.NewGormLeaveRepository(database.DB), notifService)
	reportService := services.NewReportService(engine, services.NewGormRoster(database.DB))
	archives := services.NewGormArchiveStore(database.DB)

	var (
		uploader    services.ReportUploader
		presigner   controllers.Presigner
		archiveSpec = cfg.ReportArchiveCron
	)
	if store, err := storage.NewStorageService(); err != nil {
		logrus.WithError(err).Warn("S3 unavailable, report archiving disabled")
		archiveSpec = ""
	} else {
		uploader, presigner = store, store
	}

	monitor := services.NewAttendanceMonitor(reportService, notifService, uploader, archives, cfg.Location)
	if err := monitor.AddJob("activity_log_flush", "@every 5m", func(ctx context.Context) error {
		_, err := middleware.FlushActivityLogs(ctx, database.DB, database.GetRedisClient(), 1000)
		return err
	}); err != nil {
		logrus.WithError(err).Fatal("Failed to schedule activity log flush")
	}
	if err := monitor.Start(cfg.AttendanceAlertCron, archiveSpec); err != nil {
		logrus.WithError(err).Fatal("Failed to start attendance monitor")
	}

	health := services.NewHealthService("", "")
	health.SetClientCounter(wsHub.GetClientCount)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	routes.SetupRoutes(app, routes.Controllers{
		Auth:         controllers.NewAuthController(database.DB, database.GetRedisClient(), engine),
		Attendance:   controllers.NewAttendanceController(engine),
		Academic:     controllers.NewAcademicController(engine, cfg.Location),
		Leave:        controllers.NewLeaveController(leaveService, cfg.Location),
		Report:       controllers.NewReportController(reportService, archives, presigner, monitor),
		Notification: controllers.NewNotificationController(notifService),
		WebSocket:    controllers.NewWebSocketController(wsHub),
		Health:       controllers.NewHealthController(health),
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down")
		close(stop)
		monitor.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.AppEnv,
		"timezone":    cfg.Location.String(),
		"min_percent": cfg.MinimumAttendance,
	}).Info("College Portal attendance API starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
	database.Close()
}

// setupLogging configures logrus from LOG_LEVEL and LOG_FILE
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	// Log to stdout in development, to file otherwise
	if cfg.AppEnv == "development" || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		logrus.WithError(err).Warn("Could not create log directory, logging to stdout")
		return
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err == nil {
		logrus.SetOutput(file)
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":      err.Error(),
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"status":     code,
		"request_id": middleware.RequestID(c),
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
