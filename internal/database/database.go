// Package database wires up the gorm connection and schema migration for
// the sync engine, following the sibling services' config.InitDB pattern.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inventory-sync-engine/internal/config"
	"inventory-sync-engine/internal/models"
)

// Connect opens a gorm connection to the configured database, logging at
// Error level in production and Info level otherwise.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates/updates the tables backing spec.md §6's persisted
// state layout.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PlatformConnection{},
		&models.CanonicalProduct{},
		&models.CanonicalProductVariant{},
		&models.ProductImage{},
		&models.CanonicalInventoryLevel{},
		&models.PlatformProductMapping{},
		&models.RawSnapshot{},
		&models.ActivityLog{},
		&models.WebhookReceipt{},
	)
}
