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

type PlayersHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewPlayersHandler(db *database.DB, cacheService *services.CacheService) *PlayersHandler {
	return &PlayersHandler{
		db:    db,
		cache: cacheService,
	}
}

// GetPlayerWar returns a player's full WAR history
// GET /api/v1/players/:id/war
func (h *PlayersHandler) GetPlayerWar(c *gin.Context) {
	playerID := c.Param("id")
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached cache.PlayerAnalytics
		if err := h.cache.Get(ctx, services.PlayerWarCacheKey(playerID), &cached); err == nil {
			utils.SendSuccess(c, &cached)
			return
		}
	}

	doc := cache.NewPlayersDoc()
	if _, err := loadDocument(h.db, cache.DocPlayers, doc); err != nil {
		utils.SendInternalError(c, "Failed to load player analytics")
		return
	}

	rec, ok := doc.Players[playerID]
	if !ok {
		utils.SendNotFound(c, "Player not found")
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, services.PlayerWarCacheKey(playerID), rec, 5*time.Minute)
	}

	utils.SendSuccess(c, rec)
}

// WeekWarRow is one leaderboard entry for a simulated week.
type WeekWarRow struct {
	PlayerID  string  `json:"player_id"`
	Name      string  `json:"name"`
	Position  string  `json:"position"`
	War       float64 `json:"war"`
	Points    float64 `json:"points"`
	StartedBy string  `json:"started_by,omitempty"`
	Started   bool    `json:"started"`
}

// GetWeekWar returns the WAR leaderboard for one week
// GET /api/v1/war/weekly?season=2024&week=5&limit=25
func (h *PlayersHandler) GetWeekWar(c *gin.Context) {
	season, err := strconv.Atoi(c.Query("season"))
	if err != nil {
		utils.SendValidationError(c, "Invalid season", "Provide the season as an integer query parameter")
		return
	}
	week, err := strconv.Atoi(c.Query("week"))
	if err != nil {
		utils.SendValidationError(c, "Invalid week", "Provide the week as an integer query parameter")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if err != nil || limit < 1 {
		utils.SendValidationError(c, "Invalid limit", "Limit must be a positive integer")
		return
	}
	if limit > 200 {
		limit = 200
	}

	doc := cache.NewPlayersDoc()
	if _, err := loadDocument(h.db, cache.DocPlayers, doc); err != nil {
		utils.SendInternalError(c, "Failed to load player analytics")
		return
	}

	rows := make([]WeekWarRow, 0, 64)
	for _, rec := range doc.Players {
		score := rec.War[season][week]
		if score == nil {
			continue
		}
		rows = append(rows, WeekWarRow{
			PlayerID:  rec.PlayerID,
			Name:      rec.Name,
			Position:  rec.Position,
			War:       score.War,
			Points:    score.Points,
			StartedBy: score.StartedBy,
			Started:   score.Started,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].War != rows[j].War {
			return rows[i].War > rows[j].War
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	utils.SendSuccess(c, gin.H{
		"season":  season,
		"week":    week,
		"results": rows,
	})
}
