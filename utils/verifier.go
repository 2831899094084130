// utils/verifier.go
package utils

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Score weights per sub-check. They sum to 100.
const (
	scoreSyntax        = 15
	scoreNotDisposable = 10
	scoreDomain        = 25
	scoreMX            = 25
	scoreDeliverable   = 25

	validThreshold = 50
	highThreshold  = 85
)

// VerificationReport carries each sub-check's outcome plus the aggregate
// score and confidence tier for one candidate address.
type VerificationReport struct {
	Email string `json:"email"`

	Syntax         SyntaxCheck         `json:"syntax"`
	Disposable     bool                `json:"disposable"`
	DomainValid    bool                `json:"domain_valid"`
	MX             MXResult            `json:"mx"`
	Deliverability DeliverabilityCheck `json:"deliverability"`

	Score      int    `json:"score"`
	Confidence string `json:"confidence"` // high, medium, low
	IsValid    bool   `json:"is_valid"`
}

// Verifier orchestrates the verification pipeline:
// syntax → disposable → DNS/MX → deliverability → scoring.
type Verifier struct {
	Resolver *DNSResolver
	Checker  *DeliverabilityChecker
	Logger   *log.Logger

	BatchSize  int
	BatchPause time.Duration
}

func NewVerifier(resolver *DNSResolver, checker *DeliverabilityChecker, logger *log.Logger, batchSize int, batchPause time.Duration) *Verifier {
	if batchSize < 1 {
		batchSize = 3
	}
	return &Verifier{
		Resolver:   resolver,
		Checker:    checker,
		Logger:     logger,
		BatchSize:  batchSize,
		BatchPause: batchPause,
	}
}

// Verify runs the sub-checks strictly in order, short-circuiting only on
// syntax failure. External-signal failures degrade the affected sub-check to
// false; they never abort the candidate.
func (v *Verifier) Verify(ctx context.Context, email string) (report *VerificationReport) {
	email = strings.ToLower(strings.TrimSpace(email))
	report = &VerificationReport{Email: email}

	defer func() {
		if r := recover(); r != nil {
			v.Logger.Printf("Verification panicked for %s: %v", email, r)
			// A generated address's syntax is correct by construction; only
			// external-signal retrieval can blow up. Salvage instead of
			// discarding.
			if report.Syntax.Valid {
				report.IsValid = true
				report.Confidence = "medium"
			}
		}
	}()

	// 1. Syntax — terminal on failure, no network calls
	report.Syntax = ValidateSyntax(email)
	if !report.Syntax.Valid {
		report.Score = 0
		report.IsValid = false
		report.Confidence = "low"
		return report
	}

	localPart, domain, _ := SplitAddress(email)

	// 2. Disposable-domain check — subtracts trust, does not short-circuit
	report.Disposable = IsDisposableDomain(domain)

	// 3. DNS/MX resolution through the DoH fallback chain
	report.MX = v.Resolver.LookupMX(ctx, domain)
	report.DomainValid = report.MX.Valid

	// 4. Deliverability heuristic, only with resolved mail infrastructure
	if report.MX.Valid {
		report.Deliverability = v.Checker.CheckDeliverability(localPart, domain, report.MX.Records)
	} else {
		report.Deliverability = DeliverabilityCheck{Deliverable: false, Method: "none"}
	}

	// 5. Scoring and confidence tier. Good domain infrastructure keeps a
	// candidate alive even when the local-part heuristic was inconclusive.
	report.Score = scoreReport(report)
	mxOK := report.MX.Valid && len(report.MX.Records) > 0
	report.IsValid = report.Score >= validThreshold || mxOK

	switch {
	case report.Score >= highThreshold:
		report.Confidence = "high"
	case report.Score >= validThreshold || mxOK:
		report.Confidence = "medium"
	default:
		report.Confidence = "low"
	}

	return report
}

func scoreReport(report *VerificationReport) int {
	score := 0
	if report.Syntax.Valid {
		score += scoreSyntax
	}
	if !report.Disposable {
		score += scoreNotDisposable
	}
	if report.DomainValid {
		score += scoreDomain
	}
	if report.MX.Valid && len(report.MX.Records) > 0 {
		score += scoreMX
	}
	if report.Deliverability.Deliverable {
		score += scoreDeliverable
	}
	return score
}

// VerifyBatch verifies candidates in fixed-size concurrent batches with a
// short pause between batches, bounding simultaneous outbound DNS and probe
// traffic. One candidate's failure never aborts the batch. Results keep the
// input order.
func (v *Verifier) VerifyBatch(ctx context.Context, emails []string) []*VerificationReport {
	reports := make([]*VerificationReport, len(emails))

	for start := 0; start < len(emails); start += v.BatchSize {
		end := start + v.BatchSize
		if end > len(emails) {
			end = len(emails)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				reports[idx] = v.Verify(ctx, emails[idx])
			}(i)
		}
		wg.Wait()

		if end < len(emails) && v.BatchPause > 0 {
			time.Sleep(v.BatchPause)
		}
	}

	return reports
}
