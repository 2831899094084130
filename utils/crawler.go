// utils/crawler.go
package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

const (
	crawlUserAgent    = "MailGuardPilot/1.0 (+https://github.com/hannahgrace-creator/mail-guard-pilot)"
	crawlFetchTimeout = 10 * time.Second
	maxCrawlBodySize  = 2 << 20 // 2 MiB per page
)

// Well-known relative paths likely to list staff addresses.
var crawlPaths = []string{
	"", "/about", "/team", "/contact", "/careers",
	"/staff", "/leadership", "/management", "/directory", "/people",
}

var addressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// crawlMetadata is the completion snapshot stored on the session.
type crawlMetadata struct {
	Patterns []DetectedPattern `json:"patterns"`
	Sources  map[string]int    `json:"sources"`
}

// Crawler fetches a domain's well-known pages, extracts addresses belonging
// to that domain and records them with provenance.
type Crawler struct {
	DB     *gorm.DB
	Client *http.Client
	Logger *log.Logger

	// BaseURL overrides "https://<domain>" when set; tests point it at a
	// local server.
	BaseURL string
}

func NewCrawler(db *gorm.DB, logger *log.Logger) *Crawler {
	return &Crawler{
		DB:     db,
		Client: &http.Client{Timeout: crawlFetchTimeout},
		Logger: logger,
	}
}

// Crawl creates a CrawlSession in crawling state and returns it immediately;
// the fetch/extract work continues in a detached goroutine. The caller polls
// the session for completion.
func (cr *Crawler) Crawl(domain string) (*models.CrawlSession, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	session := models.CrawlSession{
		Domain:    domain,
		Status:    "crawling",
		StartedAt: time.Now(),
	}
	if err := cr.DB.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create crawl session: %w", err)
	}

	go cr.run(session.ID, domain)

	return &session, nil
}

// run is the detached crawl task. Its outermost error boundary guarantees the
// session always leaves the crawling state unless the process itself dies.
func (cr *Crawler) run(sessionID uint, domain string) {
	defer func() {
		if r := recover(); r != nil {
			cr.Logger.Printf("Crawl of %s panicked: %v", domain, r)
			sentry.CaptureException(fmt.Errorf("crawl of %s panicked: %v", domain, r))
			cr.failSession(sessionID, fmt.Sprintf("crawl panicked: %v", r))
		}
	}()

	if err := cr.crawlDomain(sessionID, domain); err != nil {
		cr.Logger.Printf("Crawl of %s failed: %v", domain, err)
		sentry.CaptureException(err)
		cr.failSession(sessionID, err.Error())
	}
}

func (cr *Crawler) crawlDomain(sessionID uint, domain string) error {
	base := cr.BaseURL
	if base == "" {
		base = "https://" + domain
	}

	pagesCrawled := 0
	sources := make(map[string]int)
	allEmails := make(map[string]bool)

	for _, path := range crawlPaths {
		url := base + path

		body, contentType, err := cr.fetchPage(url)
		if err != nil {
			// Unreachable or non-2xx pages contribute zero emails
			cr.Logger.Printf("Skipping %s: %v", url, err)
			continue
		}
		pagesCrawled++

		emails := extractEmails(body, domain)
		sources[url] = len(emails)

		sourceType := "webpage"
		if strings.Contains(contentType, "application/pdf") {
			sourceType = "pdf"
		}

		for _, email := range emails {
			allEmails[email] = true
			found := models.FoundEmail{
				Domain:       domain,
				EmailAddress: email,
				SourceURL:    url,
				SourceType:   sourceType,
				FoundDate:    time.Now(),
			}
			// Re-crawls hit the (email_address, domain) key; conflicts are
			// expected, not errors.
			if err := cr.DB.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email_address"}, {Name: "domain"}},
				DoNothing: true,
			}).Create(&found).Error; err != nil {
				cr.Logger.Printf("Failed to record %s: %v", email, err)
			}
		}
	}

	patterns, err := cr.detectAndStorePatterns(domain)
	if err != nil {
		return err
	}

	metadata, _ := json.Marshal(crawlMetadata{Patterns: patterns, Sources: sources})
	now := time.Now()

	return cr.DB.Model(&models.CrawlSession{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"status":            "completed",
		"pages_crawled":     pagesCrawled,
		"emails_found":      len(allEmails),
		"patterns_detected": len(patterns),
		"completed_at":      &now,
		"metadata":          string(metadata),
	}).Error
}

// detectAndStorePatterns runs the detector over the domain's full FoundEmail
// corpus and upserts the resulting pattern rows.
func (cr *Crawler) detectAndStorePatterns(domain string) ([]DetectedPattern, error) {
	var found []models.FoundEmail
	if err := cr.DB.Where("domain = ?", domain).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load found emails: %w", err)
	}

	emails := make([]string, 0, len(found))
	for _, f := range found {
		emails = append(emails, f.EmailAddress)
	}

	patterns := DetectPatterns(domain, emails)
	for _, p := range patterns {
		row := models.EmailPattern{
			Domain:          domain,
			Pattern:         p.Pattern,
			ConfidenceScore: p.Confidence,
			SampleCount:     p.SampleCount,
			LastUpdated:     time.Now(),
		}
		if err := cr.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}, {Name: "pattern"}},
			DoUpdates: clause.AssignmentColumns([]string{"confidence_score", "sample_count", "last_updated", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("failed to upsert pattern %s: %w", p.Pattern, err)
		}
	}

	return patterns, nil
}

func (cr *Crawler) fetchPage(url string) (string, string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", crawlUserAgent)

	resp, err := cr.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBodySize))
	if err != nil {
		return "", "", err
	}

	return string(body), resp.Header.Get("Content-Type"), nil
}

// extractEmails scans a page body for addresses whose domain suffix matches
// the target, combining a regex pass with mailto: hrefs. The result is
// deduplicated and lowercased.
func extractEmails(body, domain string) []string {
	domain = strings.ToLower(domain)
	seen := make(map[string]bool)
	var emails []string

	add := func(raw string) {
		email := strings.ToLower(strings.TrimSpace(raw))
		addrDomain := ExtractDomain(email)
		if addrDomain == "" || !strings.HasSuffix(addrDomain, domain) {
			return
		}
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	for _, match := range addressPattern.FindAllString(body, -1) {
		add(match)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			addr := strings.TrimPrefix(href, "mailto:")
			if i := strings.Index(addr, "?"); i >= 0 {
				addr = addr[:i]
			}
			add(addr)
		})
	}

	return emails
}

func (cr *Crawler) failSession(sessionID uint, message string) {
	now := time.Now()
	if err := cr.DB.Model(&models.CrawlSession{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"status":        "failed",
		"error_message": message,
		"completed_at":  &now,
	}).Error; err != nil {
		cr.Logger.Printf("Failed to mark session %d failed: %v", sessionID, err)
	}
}
