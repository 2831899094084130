package models

import "gorm.io/gorm"

// Migrate runs schema migration for every model the pipeline persists.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&CrawlSession{},
		&FoundEmail{},
		&EmailPattern{},
		&Test{},
		&EmailCandidate{},
		&DeliveryRecord{},
	)
}
