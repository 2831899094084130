package models

import (
	"time"

	"gorm.io/gorm"
)

// Test is one discovery run for a person at a domain. Status is owned
// exclusively by the orchestrator and is non-decreasing except for the
// terminal failed transition.
type Test struct {
	gorm.Model
	Domain      string `gorm:"not null;index" json:"domain"`
	FirstName   string `gorm:"not null" json:"first_name"`
	LastName    string `gorm:"not null" json:"last_name"`
	CompanyName string `json:"company_name,omitempty"`
	Status      string `gorm:"default:'pending'" json:"status"` // pending, generating, verifying, completed, failed

	ErrorMessage string `json:"error_message,omitempty"`

	// Relations
	Candidates []EmailCandidate `gorm:"foreignKey:TestID" json:"candidates,omitempty"`
}

// EmailCandidate is a generated address for a Test, scored by the
// verification engine and optionally confirmed by a real delivery probe.
// Candidates are never deleted.
type EmailCandidate struct {
	gorm.Model
	TestID       uint   `gorm:"not null;uniqueIndex:idx_candidate_test_email" json:"test_id"`
	EmailAddress string `gorm:"not null;uniqueIndex:idx_candidate_test_email" json:"email_address"`

	// Pattern the address was generated from (provenance)
	EmailPattern string `json:"email_pattern"`

	VerificationStatus string `gorm:"default:'pending'" json:"verification_status"` // pending, valid, invalid, delivery_confirmed, bounced

	Score      int    `gorm:"default:0" json:"score"`
	Confidence string `json:"confidence"` // high, medium, low

	// Full per-check verification report, JSON encoded
	VerificationDetail string `gorm:"type:text" json:"verification_detail,omitempty"`

	DeliveryResponse string `json:"delivery_response,omitempty"`
}

// DeliveryRecord correlates an outbound probe message with the asynchronous
// delivery or bounce event that the provider reports later.
type DeliveryRecord struct {
	gorm.Model
	MessageID string `gorm:"not null;uniqueIndex" json:"message_id"`
	Email     string `gorm:"not null;index" json:"email"`
	TestID    *uint  `gorm:"index" json:"test_id,omitempty"`

	DeliveryStatus string `gorm:"default:'pending'" json:"delivery_status"` // pending, delivered, bounced

	BounceType   string     `json:"bounce_type,omitempty"`
	BounceReason string     `json:"bounce_reason,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}
