package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

func newCrawlSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<p>Reach us at john.doe@acme.test or jane.smith@acme.test.</p>
			<p>Unrelated: someone@other-company.test</p>
		</body></html>`)
	})
	mux.HandleFunc("/team", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="mailto:Bob.Jones@acme.test?subject=Hi">Bob</a>
			<a href="mailto:press@other-company.test">Press</a>
			<p>john.doe@acme.test appears here too.</p>
		</body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawl_ExtractsAndPersists(t *testing.T) {
	db := newTestDB(t)
	site := newCrawlSite(t)

	cr := NewCrawler(db, newTestLogger())
	cr.BaseURL = site.URL

	session, err := cr.Crawl("acme.test")
	require.NoError(t, err)
	assert.Equal(t, "crawling", session.Status)

	done := waitForSession(t, db, session.ID)
	require.Equal(t, "completed", done.Status)
	assert.Equal(t, 2, done.PagesCrawled)
	assert.Equal(t, 3, done.EmailsFound)
	assert.Equal(t, 1, done.PatternsDetected)
	require.NotNil(t, done.CompletedAt)

	var found []models.FoundEmail
	require.NoError(t, db.Where("domain = ?", "acme.test").Order("email_address").Find(&found).Error)
	require.Len(t, found, 3)
	assert.Equal(t, "bob.jones@acme.test", found[0].EmailAddress)
	assert.Equal(t, "jane.smith@acme.test", found[1].EmailAddress)
	assert.Equal(t, "john.doe@acme.test", found[2].EmailAddress)
	for _, f := range found {
		assert.Equal(t, "webpage", f.SourceType)
		assert.NotEmpty(t, f.SourceURL)
	}

	var patterns []models.EmailPattern
	require.NoError(t, db.Where("domain = ?", "acme.test").Find(&patterns).Error)
	require.Len(t, patterns, 1)
	assert.Equal(t, "{first}.{last}", patterns[0].Pattern)
	assert.Equal(t, 3, patterns[0].SampleCount)
	assert.InDelta(t, 1.0, patterns[0].ConfidenceScore, 1e-9)

	var metadata crawlMetadata
	require.NoError(t, json.Unmarshal([]byte(done.Metadata), &metadata))
	assert.Len(t, metadata.Patterns, 1)
	assert.Equal(t, 2, metadata.Sources[site.URL+"/team"])
}

func TestCrawl_Idempotent(t *testing.T) {
	db := newTestDB(t)
	site := newCrawlSite(t)

	cr := NewCrawler(db, newTestLogger())
	cr.BaseURL = site.URL

	first, err := cr.Crawl("acme.test")
	require.NoError(t, err)
	waitForSession(t, db, first.ID)

	second, err := cr.Crawl("acme.test")
	require.NoError(t, err)
	done := waitForSession(t, db, second.ID)
	require.Equal(t, "completed", done.Status)

	var emailCount, patternCount int64
	require.NoError(t, db.Model(&models.FoundEmail{}).Where("domain = ?", "acme.test").Count(&emailCount).Error)
	require.NoError(t, db.Model(&models.EmailPattern{}).Where("domain = ?", "acme.test").Count(&patternCount).Error)
	assert.Equal(t, int64(3), emailCount)
	assert.Equal(t, int64(1), patternCount)
}

func TestCrawl_UnreachableSiteCompletesEmpty(t *testing.T) {
	db := newTestDB(t)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(site.Close)

	cr := NewCrawler(db, newTestLogger())
	cr.BaseURL = site.URL

	session, err := cr.Crawl("acme.test")
	require.NoError(t, err)

	done := waitForSession(t, db, session.ID)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, 0, done.PagesCrawled)
	assert.Equal(t, 0, done.EmailsFound)
	assert.Equal(t, 0, done.PatternsDetected)
}

func TestExtractEmails(t *testing.T) {
	body := `<html><body>
		<p>JOHN.DOE@ACME.TEST and john.doe@acme.test are the same person.</p>
		<a href="mailto:jane@acme.test?subject=Hello">Jane</a>
		<p>outsider@elsewhere.test</p>
	</body></html>`

	emails := extractEmails(body, "acme.test")
	assert.ElementsMatch(t, []string{"john.doe@acme.test", "jane@acme.test"}, emails)
}
