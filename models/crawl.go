package models

import (
	"time"

	"gorm.io/gorm"
)

// CrawlSession tracks one crawl of a domain's public pages. A domain may
// have many sessions over time; consumers read the most recent one.
type CrawlSession struct {
	gorm.Model
	Domain string `gorm:"not null;index" json:"domain"`
	Status string `gorm:"default:'pending'" json:"status"` // pending, crawling, completed, failed

	PagesCrawled     int `gorm:"default:0" json:"pages_crawled"`
	EmailsFound      int `gorm:"default:0" json:"emails_found"`
	PatternsDetected int `gorm:"default:0" json:"patterns_detected"`

	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	// Snapshot of detected patterns and per-source counts, JSON encoded
	Metadata string `gorm:"type:text" json:"metadata,omitempty"`
}

// FoundEmail is a real address discovered on a crawled page. Append-only in
// effect: re-crawls upsert on (email_address, domain) and never duplicate.
type FoundEmail struct {
	gorm.Model
	Domain       string    `gorm:"not null;uniqueIndex:idx_found_email_domain" json:"domain"`
	EmailAddress string    `gorm:"not null;uniqueIndex:idx_found_email_domain" json:"email_address"`
	SourceURL    string    `json:"source_url"`
	SourceType   string    `gorm:"default:'webpage'" json:"source_type"` // webpage, pdf, social
	FoundDate    time.Time `json:"found_date"`
}

// EmailPattern is a naming convention inferred from a domain's FoundEmail
// corpus. Overwritten as evidence accumulates; confidence saturates with
// sample count.
type EmailPattern struct {
	gorm.Model
	Domain          string    `gorm:"not null;uniqueIndex:idx_pattern_domain" json:"domain"`
	Pattern         string    `gorm:"not null;uniqueIndex:idx_pattern_domain" json:"pattern"`
	ConfidenceScore float64   `gorm:"default:0" json:"confidence_score"`
	SampleCount     int       `gorm:"default:0" json:"sample_count"`
	LastUpdated     time.Time `json:"last_updated"`
}
