package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/models"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/database"
	"github.com/jstittsworth/league-analytics/pkg/utils"
)

type UpdatesHandler struct {
	db      *database.DB
	updater *services.UpdaterService
	logger  *logrus.Logger
}

func NewUpdatesHandler(db *database.DB, updater *services.UpdaterService, logger *logrus.Logger) *UpdatesHandler {
	return &UpdatesHandler{
		db:      db,
		updater: updater,
		logger:  logger,
	}
}

type backfillRequest struct {
	Season int `json:"season" binding:"required"`
	Week   int `json:"week" binding:"required,min=1"`
}

// TriggerRun kicks off a full update run in the background
// POST /api/v1/updates/run
func (h *UpdatesHandler) TriggerRun(c *gin.Context) {
	if h.updater.Running() {
		utils.SendConflict(c, "An update run is already in progress")
		return
	}

	// The run outlives the request; overlap is re-checked by the updater
	// itself.
	go func() {
		err := h.updater.RunAll(context.Background(), "api")
		if err != nil && !errors.Is(err, services.ErrRunInProgress) {
			h.logger.Errorf("API-triggered update failed: %v", err)
		}
	}()

	utils.SendAccepted(c, gin.H{"status": "started"})
}

// BackfillReplacement recomputes one week's replacement scores
// POST /api/v1/updates/replacement
func (h *UpdatesHandler) BackfillReplacement(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	err := h.updater.UpdateReplacementWeek(c.Request.Context(), req.Season, req.Week)
	h.sendBackfillResult(c, err, "Failed to recompute replacement scores")
}

// BackfillAnalytics recomputes one week's player WAR outcomes
// POST /api/v1/updates/analytics
func (h *UpdatesHandler) BackfillAnalytics(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	err := h.updater.UpdatePlayerAnalyticsWeek(c.Request.Context(), req.Season, req.Week)
	h.sendBackfillResult(c, err, "Failed to recompute player analytics")
}

func (h *UpdatesHandler) sendBackfillResult(c *gin.Context, err error, failure string) {
	switch {
	case err == nil:
		utils.SendSuccess(c, gin.H{"status": "recomputed"})
	case errors.Is(err, services.ErrRunInProgress):
		utils.SendConflict(c, "An update run is already in progress")
	case errors.Is(err, services.ErrSeasonNotConfigured):
		utils.SendValidationError(c, "Season is not configured", err.Error())
	default:
		h.logger.Errorf("Backfill failed: %v", err)
		utils.SendInternalError(c, failure)
	}
}

// GetStatus reports whether a run is active, the persisted progress marker
// and the most recent run record
// GET /api/v1/updates/status
func (h *UpdatesHandler) GetStatus(c *gin.Context) {
	progress := &cache.ProgressDoc{}
	if _, err := loadDocument(h.db, cache.DocProgress, progress); err != nil {
		utils.SendInternalError(c, "Failed to load update progress")
		return
	}

	var lastRun *models.PipelineRun
	var run models.PipelineRun
	err := h.db.Order("started_at DESC").First(&run).Error
	switch {
	case err == nil:
		lastRun = &run
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No runs recorded yet.
	default:
		h.logger.Warnf("Failed to load last pipeline run: %v", err)
	}

	utils.SendSuccess(c, gin.H{
		"running":  h.updater.Running(),
		"marker":   progress.Marker,
		"last_run": lastRun,
	})
}

// ListRuns returns recent pipeline runs, newest first
// GET /api/v1/updates/runs?limit=20
func (h *UpdatesHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		utils.SendValidationError(c, "Invalid limit", "Limit must be a positive integer")
		return
	}
	if limit > 100 {
		limit = 100
	}

	var runs []models.PipelineRun
	if err := h.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		utils.SendInternalError(c, "Failed to load pipeline runs")
		return
	}

	utils.SendSuccess(c, runs)
}
