package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/league-analytics/internal/cache"
	"github.com/jstittsworth/league-analytics/internal/services"
	"github.com/jstittsworth/league-analytics/pkg/database"
	"github.com/jstittsworth/league-analytics/pkg/utils"
)

type ReplacementHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewReplacementHandler(db *database.DB, cacheService *services.CacheService) *ReplacementHandler {
	return &ReplacementHandler{
		db:    db,
		cache: cacheService,
	}
}

// replacementWeekResponse wraps one week's record with its coordinates.
type replacementWeekResponse struct {
	Season int `json:"season"`
	Week   int `json:"week"`
	*cache.ReplacementWeek
}

// GetWeek returns the replacement-score record for one week
// GET /api/v1/replacement/:season/:week
func (h *ReplacementHandler) GetWeek(c *gin.Context) {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil {
		utils.SendValidationError(c, "Invalid season", "Season must be an integer")
		return
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		utils.SendValidationError(c, "Invalid week", "Week must be a positive integer")
		return
	}
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached replacementWeekResponse
		if err := h.cache.Get(ctx, services.ReplacementCacheKey(season, week), &cached); err == nil {
			utils.SendSuccess(c, &cached)
			return
		}
	}

	doc := cache.NewReplacementDoc()
	if _, err := loadDocument(h.db, cache.DocReplacement, doc); err != nil {
		utils.SendInternalError(c, "Failed to load replacement scores")
		return
	}

	wk, ok := doc.Lookup(season, week)
	if !ok {
		utils.SendNotFound(c, "No replacement record for that week")
		return
	}

	resp := &replacementWeekResponse{Season: season, Week: week, ReplacementWeek: wk}
	if h.cache != nil {
		_ = h.cache.Set(ctx, services.ReplacementCacheKey(season, week), resp, 5*time.Minute)
	}

	utils.SendSuccess(c, resp)
}
