package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"

	"github.com/hannahgrace-creator/mail-guard-pilot/config"
	"github.com/hannahgrace-creator/mail-guard-pilot/middleware"
	"github.com/hannahgrace-creator/mail-guard-pilot/routes"
	"github.com/hannahgrace-creator/mail-guard-pilot/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "MAILGUARD: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize Sentry for background task error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize Sentry: %v", err)
		}
	}

	// Optional Redis client backs the MX lookup cache
	var rdb *redis.Client
	if config.AppConfig.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start the bounce mailbox poller
	if config.AppConfig.IMAP.Enabled {
		bounceWorker := worker.NewBounceWorker(config.DB, config.AppConfig.IMAP, log.New(os.Stdout, "BOUNCE: ", log.LstdFlags))
		go bounceWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, rdb)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
