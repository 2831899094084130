package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/config"
	controller "github.com/hannahgrace-creator/mail-guard-pilot/controllers"
	"github.com/hannahgrace-creator/mail-guard-pilot/middleware"
	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client) {
	// Initialize controllers with their respective loggers
	crawlLogger := log.New(os.Stdout, "CRAWL: ", log.Ldate|log.Ltime|log.Lshortfile)
	verifyLogger := log.New(os.Stdout, "VERIFY: ", log.Ldate|log.Ltime|log.Lshortfile)
	testLogger := log.New(os.Stdout, "TEST: ", log.LstdFlags)
	deliveryLogger := log.New(os.Stdout, "DELIVERY: ", log.LstdFlags)

	cfg := config.AppConfig
	resolver := utils.NewDNSResolver(cfg.DoHEndpoints, rdb, verifyLogger)
	checker := utils.NewDeliverabilityChecker()
	verifier := utils.NewVerifier(resolver, checker, verifyLogger, cfg.VerifyBatchSize, cfg.VerifyBatchPause)
	crawler := utils.NewCrawler(db, crawlLogger)
	orchestrator := utils.NewOrchestrator(db, crawler, verifier, testLogger)
	prober := utils.NewProber(db, cfg.SMTP, cfg.ProbeSenders, cfg.ProbeName, deliveryLogger)

	crawlController := controller.NewCrawlController(db, crawler, crawlLogger)
	verificationController := controller.NewVerificationController(db, verifier, verifyLogger)
	testController := controller.NewTestController(db, orchestrator, testLogger)
	deliveryController := controller.NewDeliveryController(db, prober, deliveryLogger)

	// Webhook endpoint stays outside the protected group: the delivery
	// provider signs nothing and only needs a 2xx acknowledgement.
	app.Post("/webhooks/delivery", deliveryController.HandleDeliveryWebhook)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Crawl routes
	crawl := api.Group("/crawl")
	crawl.Post("/", crawlController.StartCrawl)
	crawl.Get("/sessions", crawlController.ListCrawlSessions)
	crawl.Get("/sessions/:id", crawlController.GetCrawlSession)

	// Pattern routes
	api.Get("/patterns", crawlController.GetPatterns)

	// Test routes
	test := api.Group("/tests")
	test.Post("/", testController.CreateTest)
	test.Get("/:id", testController.GetTest)
	test.Post("/:id/generate", testController.GenerateCandidates)
	test.Get("/:id/export", testController.ExportCandidates)

	// WebSocket route for test progress
	app.Get("/api/v1/tests/:id/progress", websocket.New(func(c *websocket.Conn) {
		testController.HandleProgressWS(c)
	}))

	// Verification routes
	verify := api.Group("/verify")
	verify.Get("/email", verificationController.VerifyEmail)
	verify.Post("/bulk", verificationController.BulkVerify)

	// Delivery probe routes
	api.Post("/probes", deliveryController.SendProbe)

	// Log initialization
	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup API routes
	SetupAPIRoutes(app, db, rdb)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
