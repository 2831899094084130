// controllers/crawl_controller.go
package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

type CrawlController struct {
	DB      *gorm.DB
	Crawler *utils.Crawler
	Logger  *log.Logger
}

func NewCrawlController(db *gorm.DB, crawler *utils.Crawler, logger *log.Logger) *CrawlController {
	return &CrawlController{
		DB:      db,
		Crawler: crawler,
		Logger:  logger,
	}
}

// StartCrawl accepts a domain and returns a session id immediately; the
// crawl itself runs detached and is observed by polling the session.
func (cc *CrawlController) StartCrawl(c *fiber.Ctx) error {
	var request struct {
		Domain string `json:"domain" validate:"required,fqdn"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}
	if err := utils.ValidateStruct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	session, err := cc.Crawler.Crawl(request.Domain)
	if err != nil {
		cc.Logger.Printf("Failed to start crawl for %s: %v", request.Domain, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start crawl",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"crawl_session_id": session.ID,
		"status":           session.Status,
	})
}

// GetCrawlSession returns one session's status and counters.
func (cc *CrawlController) GetCrawlSession(c *fiber.Ctx) error {
	var session models.CrawlSession
	if err := cc.DB.First(&session, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Crawl session not found",
		})
	}

	return c.JSON(session)
}

// ListCrawlSessions returns a domain's session history, most recent first.
func (cc *CrawlController) ListCrawlSessions(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Domain is required",
		})
	}

	var sessions []models.CrawlSession
	if err := cc.DB.Where("domain = ?", domain).
		Order("started_at DESC").Limit(50).Find(&sessions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch crawl sessions",
		})
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

// GetPatterns returns the detected naming patterns for a domain.
func (cc *CrawlController) GetPatterns(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Domain is required",
		})
	}

	var patterns []models.EmailPattern
	if err := cc.DB.Where("domain = ?", domain).
		Order("confidence_score DESC, sample_count DESC").Find(&patterns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch patterns",
		})
	}

	return c.JSON(fiber.Map{"patterns": patterns})
}
