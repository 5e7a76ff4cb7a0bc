package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/league-analytics/internal/api/handlers"
	"github.com/jstittsworth/league-analytics/internal/api/middleware"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/config"
	"github.com/jstittsworth/league-analytics/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, updater *services.UpdaterService, cfg *config.Config, logger *logrus.Logger) {
	// Initialize handlers
	managersHandler := handlers.NewManagersHandler(db, cache)
	playersHandler := handlers.NewPlayersHandler(db, cache)
	replacementHandler := handlers.NewReplacementHandler(db, cache)
	updatesHandler := handlers.NewUpdatesHandler(db, updater, logger)

	// Manager endpoints
	group.GET("/managers", managersHandler.ListManagers)
	group.GET("/managers/:id", managersHandler.GetManager)
	group.GET("/managers/:id/seasons/:year", managersHandler.GetManagerSeason)

	// Player analytics endpoints
	group.GET("/players/:id/war", playersHandler.GetPlayerWar)
	group.GET("/war/weekly", playersHandler.GetWeekWar)

	// Replacement score endpoints
	group.GET("/replacement/:season/:week", replacementHandler.GetWeek)

	// Pipeline status endpoints
	group.GET("/updates/status", updatesHandler.GetStatus)
	group.GET("/updates/runs", updatesHandler.ListRuns)

	// Admin endpoints
	admin := group.Group("/updates")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		admin.POST("/run", updatesHandler.TriggerRun)
		admin.POST("/replacement", updatesHandler.BackfillReplacement)
		admin.POST("/analytics", updatesHandler.BackfillAnalytics)
	}
}
