// controllers/delivery_controller.go
package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

type DeliveryController struct {
	DB     *gorm.DB
	Prober *utils.Prober
	Logger *log.Logger
}

func NewDeliveryController(db *gorm.DB, prober *utils.Prober, logger *log.Logger) *DeliveryController {
	return &DeliveryController{
		DB:     db,
		Prober: prober,
		Logger: logger,
	}
}

// SendProbe sends a real verification-test message to a candidate address.
// The synchronous reply covers the send only; the delivery verdict arrives
// later through the webhook or the bounce mailbox.
func (dc *DeliveryController) SendProbe(c *fiber.Ctx) error {
	var request struct {
		TestEmail string `json:"test_email" validate:"required,email"`
		TestID    *uint  `json:"test_id"`
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

	result := dc.Prober.SendProbe(request.TestEmail, request.TestID)
	if !result.Success {
		dc.Logger.Printf("Probe to %s failed: %s", request.TestEmail, result.Error)
	}

	return c.JSON(result)
}

// HandleDeliveryWebhook ingests asynchronous delivery and bounce events from
// the mail provider. Receiving the same event twice must not corrupt state:
// the update is last-write-wins on status and timestamp.
func (dc *DeliveryController) HandleDeliveryWebhook(c *fiber.Ctx) error {
	var payload struct {
		Type string `json:"type"`
		Data struct {
			EmailID      string `json:"email_id"`
			To           string `json:"to"`
			BounceType   string `json:"bounce_type"`
			BounceReason string `json:"bounce_reason"`
		} `json:"data"`
	}

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}
	if payload.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Event type is required",
		})
	}

	event := utils.DeliveryEvent{
		Type:         payload.Type,
		MessageID:    payload.Data.EmailID,
		Email:        payload.Data.To,
		BounceType:   payload.Data.BounceType,
		BounceReason: payload.Data.BounceReason,
	}

	if err := utils.ApplyDeliveryEvent(dc.DB, dc.Logger, event); err != nil {
		// The provider retries on non-2xx; an event we cannot correlate will
		// never correlate, so acknowledge and log instead of erroring.
		dc.Logger.Printf("Ignoring delivery event %s: %v", payload.Type, err)
	}

	return c.JSON(fiber.Map{"received": true})
}
