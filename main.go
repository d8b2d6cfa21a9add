package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/middleware"
	"tutorlink_go/routes"
	"tutorlink_go/services"
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"
	"tutorlink_go/services/websocket"
	"tutorlink_go/storage"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	serviceName = "TutorLink API"
	version     = "1.0.0"
)

func main() {
	config.LoadConfig()
	setupLogging()
	database.Connect()
	defer database.Close()

	email.SetDefault(email.NewFromConfig(config.AppConfig))

	wsHub := websocket.NewHub()
	go wsHub.Run()
	notifications.SetDefaultWSHub(wsHub)

	line := services.NewLineMessagingService()
	if line.Enabled() {
		notifications.SetDefaultLine(line)
	}

	var store storage.ObjectStore
	if s3, err := storage.NewStorageService(context.Background()); err == nil {
		store = s3
	} else {
		logrus.WithError(err).Warn("object storage disabled: avatar upload and log archiving are unavailable")
	}

	stopNotif := make(chan struct{})
	notifications.NewService().StartWorker(stopNotif)

	scheduler := services.NewScheduler(store)
	if err := scheduler.Start(); err != nil {
		logrus.WithError(err).Fatal("failed to start scheduler")
	}

	health := services.NewHealthService(serviceName, version)
	health.AddCheck(storageCheck(store))
	health.AddCheck(lineCheck(line))

	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(config.AppConfig.MaxFileSize) + 1<<20,
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(),
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.Metrics())
	app.Use(middleware.LogActivityMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.SetupRoutes(app, routes.Deps{
		Hub:        wsHub,
		Store:      store,
		Health:     health,
		Line:       line,
		LineSecret: config.AppConfig.LineChannelSecret,
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("shutting down")
		close(stopNotif)
		scheduler.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        config.AppConfig.Port,
		"environment": config.AppConfig.AppEnv,
		"version":     version,
	}).Info("server starting")

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func allowedOrigins() string {
	if config.AppConfig.FrontendURL != "" && config.AppConfig.AppEnv == "production" {
		return config.AppConfig.FrontendURL
	}
	return "*"
}

// setupLogging configures logrus from LOG_LEVEL and LOG_FILE.
func setupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if config.AppConfig.AppEnv == "development" || config.AppConfig.LogFile == "" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile(config.AppConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			logrus.SetOutput(file)
		} else {
			log.Printf("Warning: could not open log file %s: %v", config.AppConfig.LogFile, err)
		}
	}

	if hook := middleware.NewRollbarHook(config.AppConfig.RollbarToken, config.AppConfig.AppEnv, version); hook != nil {
		logrus.AddHook(hook)
	}
}

func storageCheck(store storage.ObjectStore) services.DependencyCheck {
	return func(ctx context.Context) services.DependencyStatus {
		if store == nil {
			return services.DependencyStatus{Name: "s3", Status: "disabled"}
		}
		return services.DependencyStatus{Name: "s3", Status: "up", Details: map[string]interface{}{
			"bucket": config.AppConfig.S3BucketName,
		}}
	}
}

func lineCheck(line *services.LineMessagingService) services.DependencyCheck {
	return func(ctx context.Context) services.DependencyStatus {
		if !line.Enabled() {
			return services.DependencyStatus{Name: "line", Status: "disabled"}
		}
		return services.DependencyStatus{Name: "line", Status: "up"}
	}
}

// customErrorHandler handles errors that escape the handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
