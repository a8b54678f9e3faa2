package main

import (
	"log"
	"reflect"

	"chat-automation/internal/config"
	"chat-automation/internal/database"
	"chat-automation/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Copies automation data from the local SQLite file into PostgreSQL. Intended
// for promoting a development database to a configured Postgres instance;
// requires DB_HOST to be set.
func main() {
	cfg := config.LoadConfig()

	if cfg.DBHost == "" {
		log.Fatal("DB_HOST is not set; nothing to migrate to")
	}

	sqliteDB, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	log.Printf("Connected to SQLite at %s", cfg.DBPath)

	pgDB := database.InitDB(cfg)

	log.Println("Starting data migration...")

	migrateTable := func(tableName string, rows interface{}) {
		log.Printf("Migrating table: %s", tableName)

		if err := sqliteDB.Find(rows).Error; err != nil {
			log.Printf("Error reading %s from SQLite: %v", tableName, err)
			return
		}
		if reflect.ValueOf(rows).Elem().Len() == 0 {
			log.Printf("No rows in %s, skipping", tableName)
			return
		}

		err := pgDB.Transaction(func(tx *gorm.DB) error {
			return tx.Create(rows).Error
		})
		if err != nil {
			log.Printf("Error writing %s to Postgres: %v", tableName, err)
		} else {
			log.Printf("Successfully migrated %s", tableName)
		}
	}

	var workflows []models.AutomationWorkflow
	migrateTable("automation_workflows", &workflows)

	var executions []models.WorkflowExecution
	migrateTable("workflow_executions", &executions)

	var settings []models.UserSettings
	migrateTable("user_settings", &settings)

	log.Println("Migration completed!")
}
