package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

func newTestOrchestrator(t *testing.T, db *gorm.DB) *Orchestrator {
	t.Helper()

	doh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mxAnswer("mx.acme.test."))
	}))
	t.Cleanup(doh.Close)

	// A crawl started by the orchestrator must stay off the real network
	deadSite := httptest.NewServer(http.HandlerFunc(http.NotFound))
	t.Cleanup(deadSite.Close)

	crawler := NewCrawler(db, newTestLogger())
	crawler.BaseURL = deadSite.URL

	resolver := NewDNSResolver([]string{doh.URL}, nil, newTestLogger())
	verifier := NewVerifier(resolver, stubChecker(false), newTestLogger(), 5, 0)

	return NewOrchestrator(db, crawler, verifier, newTestLogger())
}

func TestGenerateCandidates_FullLifecycle(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	test := models.Test{Domain: "acme.test", FirstName: "John", LastName: "Doe", Status: "pending"}
	require.NoError(t, db.Create(&test).Error)

	summary, err := o.GenerateCandidates(test.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, summary.CandidatesGenerated)
	assert.Equal(t, 0, summary.PatternsDetected)

	done := waitForTestStatus(t, db, test.ID, "completed")
	require.Equal(t, "completed", done.Status)

	var candidates []models.EmailCandidate
	require.NoError(t, db.Where("test_id = ?", test.ID).Find(&candidates).Error)
	require.Len(t, candidates, 21)

	for _, c := range candidates {
		assert.Contains(t, []string{"valid", "invalid"}, c.VerificationStatus)
		assert.NotEmpty(t, c.Confidence)
		assert.NotEmpty(t, c.VerificationDetail)
		assert.GreaterOrEqual(t, c.Score, 0)
		assert.LessOrEqual(t, c.Score, 100)
	}

	progress, err := o.Progress(test.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, progress, 1e-9)
}

func TestGenerateCandidates_UsesStoredPatterns(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	require.NoError(t, db.Create(&models.EmailPattern{
		Domain:          "acme.test",
		Pattern:         "{first}_{last}",
		ConfidenceScore: 1.0,
		SampleCount:     3,
		LastUpdated:     time.Now(),
	}).Error)

	test := models.Test{Domain: "acme.test", FirstName: "John", LastName: "Doe", Status: "pending"}
	require.NoError(t, db.Create(&test).Error)

	summary, err := o.GenerateCandidates(test.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PatternsDetected)

	var first models.EmailCandidate
	require.NoError(t, db.Where("test_id = ?", test.ID).Order("id ASC").First(&first).Error)
	assert.Equal(t, "john_doe@acme.test", first.EmailAddress)
	assert.Equal(t, "{first}_{last}", first.EmailPattern)

	// Stored patterns mean no new crawl was started
	var sessions int64
	require.NoError(t, db.Model(&models.CrawlSession{}).Count(&sessions).Error)
	assert.Equal(t, int64(0), sessions)

	waitForTestStatus(t, db, test.ID, "completed")
}

func TestGenerateCandidates_NoPatternsStartsCrawl(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	test := models.Test{Domain: "acme.test", FirstName: "Jane", LastName: "Smith", Status: "pending"}
	require.NoError(t, db.Create(&test).Error)

	_, err := o.GenerateCandidates(test.ID)
	require.NoError(t, err)

	var sessions int64
	require.NoError(t, db.Model(&models.CrawlSession{}).Where("domain = ?", "acme.test").Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)

	waitForTestStatus(t, db, test.ID, "completed")
}

func TestGenerateCandidates_TerminalStatesRejected(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	for _, status := range []string{"completed", "failed"} {
		test := models.Test{Domain: "acme.test", FirstName: "John", LastName: "Doe", Status: status}
		require.NoError(t, db.Create(&test).Error)

		_, err := o.GenerateCandidates(test.ID)
		assert.Error(t, err)
	}
}

func TestGenerateCandidates_UnknownTest(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	_, err := o.GenerateCandidates(9999)
	assert.Error(t, err)
}

func TestGenerateCandidates_RerunDoesNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	test := models.Test{Domain: "acme.test", FirstName: "John", LastName: "Doe", Status: "pending"}
	require.NoError(t, db.Create(&test).Error)

	_, err := o.GenerateCandidates(test.ID)
	require.NoError(t, err)
	waitForTestStatus(t, db, test.ID, "completed")

	// Reset to a re-runnable state, as an operator retrying would
	require.NoError(t, db.Model(&models.Test{}).Where("id = ?", test.ID).Update("status", "pending").Error)

	_, err = o.GenerateCandidates(test.ID)
	require.NoError(t, err)
	waitForTestStatus(t, db, test.ID, "completed")

	var count int64
	require.NoError(t, db.Model(&models.EmailCandidate{}).Where("test_id = ?", test.ID).Count(&count).Error)
	assert.Equal(t, int64(21), count)
}

func TestProgress_NoCandidates(t *testing.T) {
	db := newTestDB(t)
	o := newTestOrchestrator(t, db)

	progress, err := o.Progress(12345)
	require.NoError(t, err)
	assert.Zero(t, progress)
}
