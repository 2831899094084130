// controllers/test_controller.go
package controller

import (
	"encoding/csv"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

type TestController struct {
	DB           *gorm.DB
	Orchestrator *utils.Orchestrator
	Logger       *log.Logger
}

func NewTestController(db *gorm.DB, orchestrator *utils.Orchestrator, logger *log.Logger) *TestController {
	return &TestController{
		DB:           db,
		Orchestrator: orchestrator,
		Logger:       logger,
	}
}

// CreateTest records a new discovery run for a person at a domain.
func (tc *TestController) CreateTest(c *fiber.Ctx) error {
	var request struct {
		Domain      string `json:"domain" validate:"required,fqdn"`
		FirstName   string `json:"first_name" validate:"required,min=1,max=64"`
		LastName    string `json:"last_name" validate:"required,min=1,max=64"`
		CompanyName string `json:"company_name"`
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

	test := models.Test{
		Domain:      strings.ToLower(request.Domain),
		FirstName:   request.FirstName,
		LastName:    request.LastName,
		CompanyName: request.CompanyName,
		Status:      "pending",
	}
	if err := tc.DB.Create(&test).Error; err != nil {
		tc.Logger.Printf("Failed to create test: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create test",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(test)
}

// GetTest returns a test with its candidates and derived progress.
func (tc *TestController) GetTest(c *fiber.Ctx) error {
	var test models.Test
	if err := tc.DB.Preload("Candidates", func(db *gorm.DB) *gorm.DB {
		return db.Order("score DESC, email_address ASC")
	}).First(&test, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Test not found",
		})
	}

	progress, err := tc.Orchestrator.Progress(test.ID)
	if err != nil {
		tc.Logger.Printf("Failed to compute progress for test %d: %v", test.ID, err)
	}

	return c.JSON(fiber.Map{
		"test":     test,
		"progress": progress,
	})
}

// GenerateCandidates triggers candidate generation and background
// verification for a test.
func (tc *TestController) GenerateCandidates(c *fiber.Ctx) error {
	testID := utils.ParseUint(c.Params("id"))
	if testID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test id",
		})
	}

	summary, err := tc.Orchestrator.GenerateCandidates(testID)
	if err != nil {
		tc.Logger.Printf("Generation failed for test %d: %v", testID, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(summary)
}

// ExportCandidates streams the candidate table as CSV. Formatting only.
func (tc *TestController) ExportCandidates(c *fiber.Ctx) error {
	var test models.Test
	if err := tc.DB.Preload("Candidates", func(db *gorm.DB) *gorm.DB {
		return db.Order("score DESC, email_address ASC")
	}).First(&test, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Test not found",
		})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=candidates_"+time.Now().Format("20060102")+".csv")

	writer := csv.NewWriter(c)
	if err := writer.Write([]string{"email_address", "pattern", "verification_status", "score", "confidence", "delivery_response"}); err != nil {
		return err
	}
	for _, candidate := range test.Candidates {
		row := []string{
			candidate.EmailAddress,
			candidate.EmailPattern,
			candidate.VerificationStatus,
			strconv.Itoa(candidate.Score),
			candidate.Confidence,
			candidate.DeliveryResponse,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()

	return writer.Error()
}
