package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/api"
	"github.com/jstittsworth/league-analytics/internal/api/middleware"
	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/models"
	"github.com/jstittsworth/league-analytics/internal/providers"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/config"
	"github.com/jstittsworth/league-analytics/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}
	logger := logrus.StandardLogger()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.CacheDocument{}, &models.PipelineRun{}); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	cacheService := services.NewCacheService(redisClient)

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

	hub := services.NewHub(logger)
	go hub.Run()

	updater.Alerts = services.NewAlertSender(cfg, logger)
	updater.Hub = hub
	updater.APICache = cacheService

	scheduler := services.NewSchedulerService(updater, cfg.UpdateSchedule, logger)
	if err := scheduler.Start(!cfg.SkipInitialUpdate); err != nil {
		logrus.Fatalf("Failed to start update scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, updater, cfg, logger)

	// WebSocket endpoint at root level (not under /api/v1)
	router.GET("/ws", hub.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
