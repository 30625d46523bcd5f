package migrations

import (
	"fmt"
	"time"

	"github.com/pawday/backend/internal/domain/puppy"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/user"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrationRecord tracks the migration history
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for migration records
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *logrus.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Enable UUID extension for PostgreSQL
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		logger.WithError(err).Error("Failed to create UUID extension")
		return fmt.Errorf("failed to create UUID extension: %v", err)
	}

	// Create migrations table if it doesn't exist
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		logger.WithError(err).Error("Failed to create migrations table")
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	// Start a transaction for the entire migration process
	return db.Transaction(func(tx *gorm.DB) error {
		// Create a wrapped database connection for the transaction
		txDB := &connection.Database{DB: tx}

		// Get the current highest version number
		var lastVersion int
		if err := txDB.Model(&MigrationRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&lastVersion).Error; err != nil {
			return fmt.Errorf("failed to get last version: %v", err)
		}

		// Define the models in the order they should be migrated
		// This order matters due to foreign key relationships
		models := []interface{}{
			&user.Profile{}, // Profiles first, referenced by memberships and logs
			&puppy.Puppy{},
			&puppy.Membership{},
			&puppy.Invite{},
			&routine.Routine{},
			&routine.Item{},
			&routine.Log{},
		}

		// Migrate each model
		for i, model := range models {
			modelName := fmt.Sprintf("%T", model)

			// Check if this model has been migrated
			var record MigrationRecord
			err := txDB.Where("name = ?", modelName).First(&record).Error
			isNewMigration := err == gorm.ErrRecordNotFound

			// Run the migration
			if err := txDB.AutoMigrate(model); err != nil {
				logger.WithError(err).WithField("model", modelName).Error("Failed to migrate model")
				return fmt.Errorf("failed to migrate %s: %v", modelName, err)
			}

			// Record the migration if it's new
			if isNewMigration {
				record = MigrationRecord{
					Name:      modelName,
					Version:   lastVersion + i + 1, // Increment version for each new migration
					AppliedAt: time.Now(),
				}
				if err := txDB.Create(&record).Error; err != nil {
					logger.WithError(err).WithField("model", modelName).Error("Failed to record migration")
					return fmt.Errorf("failed to record migration for %s: %v", modelName, err)
				}
				logger.WithFields(logrus.Fields{
					"model":   modelName,
					"version": record.Version,
				}).Info("Applied new migration")
			}
		}

		logger.Info("Database migration completed successfully")
		return nil
	})
}

// GetMigrationHistory returns the history of applied migrations
func GetMigrationHistory(db *connection.Database) ([]MigrationRecord, error) {
	var records []MigrationRecord
	err := db.Order("version ASC").Find(&records).Error
	return records, err
}
