package handlers

import (
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/database"
	"github.com/jstittsworth/league-analytics/pkg/utils"
)

type ManagersHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewManagersHandler(db *database.DB, cacheService *services.CacheService) *ManagersHandler {
	return &ManagersHandler{
		db:    db,
		cache: cacheService,
	}
}

// ManagerSummary is one row of the managers list.
type ManagerSummary struct {
	UserID             string  `json:"user_id"`
	DisplayName        string  `json:"display_name"`
	TeamName           string  `json:"team_name,omitempty"`
	Seasons            int     `json:"seasons"`
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	Ties               int     `json:"ties"`
	PointsFor          float64 `json:"points_for"`
	Trades             int     `json:"trades"`
	Championships      int     `json:"championships"`
	PlayoffAppearances int     `json:"playoff_appearances"`
}

// ListManagers returns career summaries for every manager
// GET /api/v1/managers
func (h *ManagersHandler) ListManagers(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached []ManagerSummary
		if err := h.cache.Get(ctx, services.ManagersCacheKey(), &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	doc := cache.NewManagersDoc()
	if _, err := loadDocument(h.db, cache.DocManagers, doc); err != nil {
		utils.SendInternalError(c, "Failed to load manager records")
		return
	}

	summaries := make([]ManagerSummary, 0, len(doc.Managers))
	for _, rec := range doc.Managers {
		overall := rec.Career.Matchups.Overall
		summaries = append(summaries, ManagerSummary{
			UserID:             rec.UserID,
			DisplayName:        rec.DisplayName,
			TeamName:           rec.TeamName,
			Seasons:            len(rec.Seasons),
			Wins:               overall.Wins.Total,
			Losses:             overall.Losses.Total,
			Ties:               overall.Ties.Total,
			PointsFor:          overall.PointsFor.Total,
			Trades:             rec.Career.Transactions.Trades,
			Championships:      len(rec.Career.Placements.First),
			PlayoffAppearances: len(rec.Career.PlayoffAppearances),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Wins != summaries[j].Wins {
			return summaries[i].Wins > summaries[j].Wins
		}
		if summaries[i].PointsFor != summaries[j].PointsFor {
			return summaries[i].PointsFor > summaries[j].PointsFor
		}
		return summaries[i].UserID < summaries[j].UserID
	})

	if h.cache != nil {
		_ = h.cache.Set(ctx, services.ManagersCacheKey(), summaries, 5*time.Minute)
	}

	utils.SendSuccess(c, summaries)
}

// GetManager returns a manager's full career and season history
// GET /api/v1/managers/:id
func (h *ManagersHandler) GetManager(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached cache.ManagerRecord
		if err := h.cache.Get(ctx, services.ManagerCacheKey(userID), &cached); err == nil {
			utils.SendSuccess(c, &cached)
			return
		}
	}

	doc := cache.NewManagersDoc()
	if _, err := loadDocument(h.db, cache.DocManagers, doc); err != nil {
		utils.SendInternalError(c, "Failed to load manager records")
		return
	}

	rec, ok := doc.Managers[userID]
	if !ok {
		utils.SendNotFound(c, "Manager not found")
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, services.ManagerCacheKey(userID), rec, 5*time.Minute)
	}

	utils.SendSuccess(c, rec)
}

// GetManagerSeason returns one manager's record for a single season
// GET /api/v1/managers/:id/seasons/:year
func (h *ManagersHandler) GetManagerSeason(c *gin.Context) {
	userID := c.Param("id")
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		utils.SendValidationError(c, "Invalid season year", "Year must be an integer")
		return
	}

	doc := cache.NewManagersDoc()
	if _, err := loadDocument(h.db, cache.DocManagers, doc); err != nil {
		utils.SendInternalError(c, "Failed to load manager records")
		return
	}

	rec, ok := doc.Managers[userID]
	if !ok {
		utils.SendNotFound(c, "Manager not found")
		return
	}
	season, ok := rec.Seasons[year]
	if !ok {
		utils.SendNotFound(c, "Manager has no record for that season")
		return
	}

	utils.SendSuccess(c, gin.H{
		"user_id":      rec.UserID,
		"display_name": rec.DisplayName,
		"year":         year,
		"season":       season,
	})
}
