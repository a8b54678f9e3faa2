package database

import (
	"fmt"
	"log"

	"chat-automation/internal/config"
	"chat-automation/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database connection and runs auto-migration. PostgreSQL is
// used when DB_HOST is configured, otherwise a local SQLite file keeps the
// service functional without external infrastructure.
func InitDB(cfg *config.Config) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)

	if cfg.DBHost != "" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Connected to database successfully")

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database migration completed")
	return db
}

// Migrate creates or updates the automation tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AutomationWorkflow{},
		&models.WorkflowExecution{},
		&models.UserSettings{},
	)
}
