package main

import (
	"context"
	"flag"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/models"
	"github.com/jstittsworth/league-analytics/internal/providers"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/config"
	"github.com/jstittsworth/league-analytics/pkg/database"
)

// One-shot pipeline runner for cron jobs and manual backfills. The server
// binary runs the same pipeline on its own schedule; this entry point exists
// so a failed week can be recomputed without touching the API process.
func main() {
	target := flag.String("target", "all", "what to update: all, replacement or analytics")
	season := flag.Int("season", 0, "season year for targeted backfills")
	week := flag.Int("week", 0, "week number for targeted backfills")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logger := logrus.StandardLogger()

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.CacheDocument{}, &models.PipelineRun{}); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	ctx := context.Background()
	cacheService := services.NewCacheService(redisClient)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}

	seasons, err := cfg.Seasons()
	if err != nil {
		logrus.Fatalf("Failed to parse league seasons: %v", err)
	}

	provider := providers.NewSleeperClient(cfg.SleeperBaseURL, cfg.ProviderRateLimit, cfg.CircuitBreakerThreshold, cfg.ExternalAPITimeout, cacheService, logger)
	store := cache.NewDBStore(db.DB, logger)

	transactions := services.NewTransactionService(store, logger)
	matchups := services.NewMatchupService(store, logger)
	meta := services.NewManagerMetaService(provider, store, transactions, matchups, logger)
	replacement := services.NewReplacementService(provider, store, seasons, logger)
	war := services.NewWarService(provider, store, logger)
	updater := services.NewUpdaterService(provider, store, db.DB, meta, replacement, war, seasons, logger)
	updater.Alerts = services.NewAlertSender(cfg, logger)
	updater.APICache = cacheService

	switch *target {
	case "all":
		err = updater.RunAll(ctx, "manual")
	case "replacement":
		if *season == 0 || *week == 0 {
			logrus.Fatal("-season and -week are required for -target=replacement")
		}
		err = updater.UpdateReplacementWeek(ctx, *season, *week)
	case "analytics":
		if *season == 0 || *week == 0 {
			logrus.Fatal("-season and -week are required for -target=analytics")
		}
		err = updater.UpdatePlayerAnalyticsWeek(ctx, *season, *week)
	default:
		logrus.Fatalf("Unknown target: %s", *target)
	}

	if err != nil {
		logrus.Fatalf("Update failed: %v", err)
	}
	logrus.Info("Update completed")
}
