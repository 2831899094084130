package utils

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A fresh connection would be a fresh empty :memory: database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func waitForSession(t *testing.T, db *gorm.DB, id uint) models.CrawlSession {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var session models.CrawlSession
		require.NoError(t, db.First(&session, id).Error)
		if session.Status != "crawling" {
			return session
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("crawl session %d never left the crawling state", id)
	return models.CrawlSession{}
}

func waitForTestStatus(t *testing.T, db *gorm.DB, id uint, want string) models.Test {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var test models.Test
		require.NoError(t, db.First(&test, id).Error)
		if test.Status == want || test.Status == "failed" {
			return test
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("test %d never reached status %s", id, want)
	return models.Test{}
}
