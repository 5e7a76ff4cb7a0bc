package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/models"
	"github.com/jstittsworth/league-analytics/pkg/config"
	"github.com/jstittsworth/league-analytics/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// gen_random_uuid needs pgcrypto on postgres before 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.CacheDocument{},
		&models.PipelineRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_cache_documents_updated_at ON cache_documents(updated_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	tables := []string{
		"pipeline_runs",
		"cache_documents",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// seedData writes an empty version of every cache document so the API has
// well-formed rows to serve before the first pipeline run lands.
func seedData(db *database.DB) error {
	now := time.Now().UTC()
	for _, name := range cache.DocumentNames() {
		doc, err := cache.NewDocument(name)
		if err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		row := models.CacheDocument{Name: name, Data: data, UpdatedAt: now}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", name, err)
		}
		logrus.Infof("Seeded empty document %s", name)
	}
	return nil
}
