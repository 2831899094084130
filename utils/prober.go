// utils/prober.go
package utils

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/config"
	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

const (
	probeSubject = "Email verification test"
	probeBody    = "This is an automated email verification test message.\n\n" +
		"It confirms that this address can receive mail. No action is required " +
		"and you can safely ignore or delete it."
)

// ProbeResult is the synchronous outcome of a real-delivery probe. Delivery
// confirmation itself arrives later through webhook or bounce-mailbox events.
type ProbeResult struct {
	Success           bool   `json:"success"`
	DeliveryConfirmed bool   `json:"delivery_confirmed"`
	MessageID         string `json:"message_id,omitempty"`
	Sender            string `json:"sender,omitempty"`
	Error             string `json:"error,omitempty"`
	VerificationLevel string `json:"verification_level"`
}

// Prober sends real probe messages through an ordered list of verified
// sender identities. There is no retry beyond that list; a total failure is
// reported synchronously.
type Prober struct {
	DB       *gorm.DB
	SMTP     config.SMTPConfig
	Senders  []string
	FromName string
	Logger   *log.Logger

	// send is swapped out in tests
	send func(m *gomail.Message) error
}

func NewProber(db *gorm.DB, cfg config.SMTPConfig, senders []string, fromName string, logger *log.Logger) *Prober {
	p := &Prober{
		DB:       db,
		SMTP:     cfg,
		Senders:  senders,
		FromName: fromName,
		Logger:   logger,
	}
	p.send = func(m *gomail.Message) error {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		return dialer.DialAndSend(m)
	}
	return p
}

// SendProbe composes the fixed verification-test message and tries each
// sender identity in order, stopping at the first accepted send. Success
// records a pending DeliveryRecord keyed by the generated message id.
func (p *Prober) SendProbe(email string, testID *uint) *ProbeResult {
	if check := ValidateSyntax(email); !check.Valid {
		return &ProbeResult{
			Success:           false,
			Error:             check.Reason,
			VerificationLevel: "syntax_failed",
		}
	}

	if len(p.Senders) == 0 {
		return &ProbeResult{
			Success:           false,
			Error:             "no probe senders configured",
			VerificationLevel: "delivery_failed",
		}
	}

	type sentProbe struct {
		messageID string
		sender    string
	}

	sent, err := tryEach(p.Senders, func(sender string) (sentProbe, error) {
		messageID := newMessageID(sender)

		m := gomail.NewMessage()
		m.SetHeader("From", fmt.Sprintf("%s <%s>", p.FromName, sender))
		m.SetHeader("To", email)
		m.SetHeader("Subject", probeSubject)
		m.SetHeader("Message-ID", "<"+messageID+">")
		m.SetBody("text/plain", probeBody)

		if err := p.send(m); err != nil {
			logrus.WithFields(logrus.Fields{
				"sender":    sender,
				"recipient": email,
			}).Warnf("probe send rejected: %v", err)
			return sentProbe{}, err
		}
		return sentProbe{messageID: messageID, sender: sender}, nil
	})
	if err != nil {
		return &ProbeResult{
			Success:           false,
			Error:             err.Error(),
			VerificationLevel: "delivery_failed",
		}
	}

	record := models.DeliveryRecord{
		MessageID:      sent.messageID,
		Email:          strings.ToLower(email),
		TestID:         testID,
		DeliveryStatus: "pending",
	}
	if err := p.DB.Create(&record).Error; err != nil {
		p.Logger.Printf("Failed to record delivery for %s: %v", sent.messageID, err)
	}

	if testID != nil {
		if err := p.DB.Model(&models.EmailCandidate{}).
			Where("test_id = ? AND email_address = ?", *testID, strings.ToLower(email)).
			Update("delivery_response", "probe_sent:"+sent.messageID).Error; err != nil {
			p.Logger.Printf("Failed to stamp candidate for %s: %v", email, err)
		}
	}

	return &ProbeResult{
		Success:           true,
		DeliveryConfirmed: false,
		MessageID:         sent.messageID,
		Sender:            sent.sender,
		VerificationLevel: "delivery_pending",
	}
}

// newMessageID builds a provider-style message id scoped to the sender's
// domain.
func newMessageID(sender string) string {
	domain := ExtractDomain(sender)
	if domain == "" {
		domain = "mail-guard-pilot.local"
	}
	return uuid.NewString() + "@" + domain
}

// DeliveryEvent is a normalized delivery outcome, whether it arrived as a
// provider webhook or was scraped from the bounce mailbox.
type DeliveryEvent struct {
	Type         string // email.delivered, email.bounced, email.delivery_delayed
	MessageID    string
	Email        string
	BounceType   string
	BounceReason string
}

// ApplyDeliveryEvent finalizes a probe's real-world status. It resolves the
// DeliveryRecord by message id, falling back to the most recent record for
// the address, and applies a last-write-wins update — re-delivery of the same
// event leaves the same state behind.
func ApplyDeliveryEvent(db *gorm.DB, logger *log.Logger, ev DeliveryEvent) error {
	var record models.DeliveryRecord
	query := db.Order("created_at DESC")
	if ev.MessageID != "" {
		query = query.Where("message_id = ?", ev.MessageID)
	} else if ev.Email != "" {
		query = query.Where("email = ?", strings.ToLower(ev.Email))
	} else {
		return fmt.Errorf("delivery event carries neither message id nor address")
	}
	if err := query.First(&record).Error; err != nil {
		return fmt.Errorf("no delivery record for event: %w", err)
	}

	updates := map[string]interface{}{}
	candidateStatus := ""

	switch ev.Type {
	case "email.delivered":
		now := time.Now()
		updates["delivery_status"] = "delivered"
		updates["delivered_at"] = &now
		candidateStatus = "delivery_confirmed"
	case "email.bounced", "email.delivery_delayed":
		updates["delivery_status"] = "bounced"
		updates["bounce_type"] = ev.BounceType
		updates["bounce_reason"] = ev.BounceReason
		candidateStatus = "bounced"
	default:
		return fmt.Errorf("unknown delivery event type %q", ev.Type)
	}

	if err := db.Model(&models.DeliveryRecord{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update delivery record: %w", err)
	}

	if record.TestID != nil {
		response := candidateStatus
		if ev.BounceReason != "" {
			response = fmt.Sprintf("%s:%s:%s", candidateStatus, ev.BounceType, ev.BounceReason)
		}
		if err := db.Model(&models.EmailCandidate{}).
			Where("test_id = ? AND email_address = ?", *record.TestID, record.Email).
			Updates(map[string]interface{}{
				"verification_status": candidateStatus,
				"delivery_response":   response,
			}).Error; err != nil {
			logger.Printf("Failed to update candidate for %s: %v", record.Email, err)
		}
	}

	return nil
}
