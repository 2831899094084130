// controllers/verification_controller.go
package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/likexian/whois"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

const maxBulkEmails = 100

type VerificationController struct {
	DB       *gorm.DB
	Verifier *utils.Verifier
	Logger   *log.Logger
}

func NewVerificationController(db *gorm.DB, verifier *utils.Verifier, logger *log.Logger) *VerificationController {
	return &VerificationController{
		DB:       db,
		Verifier: verifier,
		Logger:   logger,
	}
}

// VerifyEmail handles single email verification, enriched with WHOIS data
// for the domain when available.
func (vc *VerificationController) VerifyEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email address is required",
		})
	}

	report := vc.Verifier.Verify(c.Context(), email)

	response := fiber.Map{"result": report}
	if report.Syntax.Valid {
		if whoisInfo, err := whois.Whois(utils.ExtractDomain(report.Email)); err == nil {
			response["whois"] = whoisInfo
		}
	}

	return c.JSON(response)
}

// BulkVerify scores a list of addresses in bounded-concurrency batches and
// replies with per-address results plus an aggregate summary.
func (vc *VerificationController) BulkVerify(c *fiber.Ctx) error {
	var request struct {
		Emails []string `json:"emails"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}
	if len(request.Emails) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one email is required",
		})
	}
	if len(request.Emails) > maxBulkEmails {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many emails; maximum is 100 per request",
		})
	}

	reports := vc.Verifier.VerifyBatch(c.Context(), request.Emails)

	var valid, high, medium, low int
	for _, report := range reports {
		if report == nil {
			continue
		}
		if report.IsValid {
			valid++
		}
		switch report.Confidence {
		case "high":
			high++
		case "medium":
			medium++
		default:
			low++
		}
	}

	total := len(reports)
	successRate := 0.0
	if total > 0 {
		successRate = float64(valid) / float64(total)
	}

	return c.JSON(fiber.Map{
		"results": reports,
		"summary": fiber.Map{
			"total":             total,
			"valid":             valid,
			"high_confidence":   high,
			"medium_confidence": medium,
			"low_confidence":    low,
			"success_rate":      successRate,
		},
	})
}
