package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/service"
)

type LeaderboardHandler struct {
	statsService *service.StatsService
}

func NewLeaderboardHandler(statsService *service.StatsService) *LeaderboardHandler {
	return &LeaderboardHandler{
		statsService: statsService,
	}
}

// GetLeaderboard godoc
// @Summary Get global leaderboard
// @Description Get top players ranked by ELO rating
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Number of top players to return" default(10)
// @Success 200 {object} map[string]interface{} "Leaderboard with player rankings"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultLeaderboardLimit)))

	entries, err := h.statsService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"total":       len(entries),
	})
}

// GetPlayerStanding 특정 플레이어의 전적과 순위
func (h *LeaderboardHandler) GetPlayerStanding(c *gin.Context) {
	standing, err := h.statsService.Standing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, standing)
}
