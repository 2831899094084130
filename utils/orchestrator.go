// utils/orchestrator.go
package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

// GenerationSummary is the synchronous reply to a generate trigger.
type GenerationSummary struct {
	CandidatesGenerated int `json:"candidates_generated"`
	PatternsDetected    int `json:"patterns_detected"`
}

// Orchestrator drives a Test through
// pending → generating → verifying → completed, with failed reachable from
// any non-terminal state. It owns Test status exclusively.
type Orchestrator struct {
	DB       *gorm.DB
	Crawler  *Crawler
	Verifier *Verifier
	Logger   *log.Logger
}

func NewOrchestrator(db *gorm.DB, crawler *Crawler, verifier *Verifier, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		DB:       db,
		Crawler:  crawler,
		Verifier: verifier,
		Logger:   logger,
	}
}

// GenerateCandidates expands and persists the candidate list for a test,
// then kicks off background verification. The reply is synchronous; scoring
// progress is observed by polling the test.
func (o *Orchestrator) GenerateCandidates(testID uint) (*GenerationSummary, error) {
	var test models.Test
	if err := o.DB.First(&test, testID).Error; err != nil {
		return nil, fmt.Errorf("test not found: %w", err)
	}
	if test.Status == "completed" || test.Status == "failed" {
		return nil, fmt.Errorf("test %d already %s", testID, test.Status)
	}

	if err := o.setStatus(testID, "generating"); err != nil {
		return nil, err
	}

	var patternRows []models.EmailPattern
	if err := o.DB.Where("domain = ?", test.Domain).
		Order("confidence_score DESC, sample_count DESC, pattern ASC").
		Find(&patternRows).Error; err != nil {
		o.fail(testID, "failed to load patterns: "+err.Error())
		return nil, err
	}

	if len(patternRows) == 0 {
		// No evidence yet for this domain: start a detached crawl for future
		// runs and generate from the generic library now.
		if _, err := o.Crawler.Crawl(test.Domain); err != nil {
			o.Logger.Printf("Could not start crawl for %s: %v", test.Domain, err)
		}
	}

	detected := make([]DetectedPattern, 0, len(patternRows))
	for _, row := range patternRows {
		detected = append(detected, DetectedPattern{
			Pattern:     row.Pattern,
			Confidence:  row.ConfidenceScore,
			SampleCount: row.SampleCount,
		})
	}

	candidates := GenerateCandidates(test.FirstName, test.LastName, test.Domain, detected)

	rows := make([]models.EmailCandidate, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, models.EmailCandidate{
			TestID:             testID,
			EmailAddress:       c.Email,
			EmailPattern:       c.Pattern,
			VerificationStatus: "pending",
		})
	}

	if err := o.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "test_id"}, {Name: "email_address"}},
		DoNothing: true,
	}).CreateInBatches(rows, 100).Error; err != nil {
		// The persist step itself failing is unrecoverable for this run
		o.fail(testID, "failed to persist candidates: "+err.Error())
		return nil, err
	}

	if err := o.setStatus(testID, "verifying"); err != nil {
		return nil, err
	}

	go o.runVerification(testID)

	return &GenerationSummary{
		CandidatesGenerated: len(rows),
		PatternsDetected:    len(patternRows),
	}, nil
}

// runVerification is the detached scoring task. Every candidate's terminal
// status is written at most once; the task's own error boundary marks the
// test failed rather than leaving it verifying forever.
func (o *Orchestrator) runVerification(testID uint) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Printf("Verification of test %d panicked: %v", testID, r)
			sentry.CaptureException(fmt.Errorf("verification of test %d panicked: %v", testID, r))
			o.fail(testID, fmt.Sprintf("verification panicked: %v", r))
		}
	}()

	var candidates []models.EmailCandidate
	if err := o.DB.Where("test_id = ? AND verification_status = ?", testID, "pending").
		Order("id ASC").Find(&candidates).Error; err != nil {
		o.fail(testID, "failed to load candidates: "+err.Error())
		return
	}

	emails := make([]string, len(candidates))
	for i, c := range candidates {
		emails[i] = c.EmailAddress
	}

	reports := o.Verifier.VerifyBatch(context.Background(), emails)

	for i, report := range reports {
		if report == nil {
			continue
		}

		status := "invalid"
		if report.IsValid {
			status = "valid"
		}

		detail, _ := json.Marshal(report)
		if err := o.DB.Model(&models.EmailCandidate{}).
			Where("id = ?", candidates[i].ID).
			Updates(map[string]interface{}{
				"verification_status": status,
				"score":               report.Score,
				"confidence":          report.Confidence,
				"verification_detail": string(detail),
			}).Error; err != nil {
			o.Logger.Printf("Failed to store result for %s: %v", candidates[i].EmailAddress, err)
		}
	}

	if err := o.setStatus(testID, "completed"); err != nil {
		o.Logger.Printf("Failed to complete test %d: %v", testID, err)
	}
}

// Progress derives completion from candidate states instead of a stored
// counter: the fraction of candidates no longer pending.
func (o *Orchestrator) Progress(testID uint) (float64, error) {
	var total, pending int64
	if err := o.DB.Model(&models.EmailCandidate{}).
		Where("test_id = ?", testID).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := o.DB.Model(&models.EmailCandidate{}).
		Where("test_id = ? AND verification_status = ?", testID, "pending").
		Count(&pending).Error; err != nil {
		return 0, err
	}
	return float64(total-pending) / float64(total), nil
}

func (o *Orchestrator) setStatus(testID uint, status string) error {
	return o.DB.Model(&models.Test{}).Where("id = ?", testID).Update("status", status).Error
}

func (o *Orchestrator) fail(testID uint, message string) {
	if err := o.DB.Model(&models.Test{}).Where("id = ?", testID).Updates(map[string]interface{}{
		"status":        "failed",
		"error_message": message,
	}).Error; err != nil {
		o.Logger.Printf("Failed to mark test %d failed: %v", testID, err)
	}
}
