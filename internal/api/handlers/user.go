package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
)

type UserHandler struct {
	userService        *service.UserService
	statsService       *service.StatsService
	achievementService *service.AchievementService
}

func NewUserHandler(
	userService *service.UserService,
	statsService *service.StatsService,
	achievementService *service.AchievementService,
) *UserHandler {
	return &UserHandler{
		userService:        userService,
		statsService:       statsService,
		achievementService: achievementService,
	}
}

// GetCurrentUser 현재 사용자 정보 조회
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userBody(user),
	})
}

// UpdateCurrentUser 현재 사용자 정보 수정
func (h *UserHandler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// avatarURL 포인터 처리
	var avatarURL *string
	if req.AvatarURL != "" {
		avatarURL = &req.AvatarURL
	}

	user, err := h.userService.Update(c.Request.Context(), userID, req.FullName, avatarURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userBody(user),
	})
}

// GetMyStats 전적, 레이팅, 순위
func (h *UserHandler) GetMyStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.statsService.Standing(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMyAchievements 획득한 업적
func (h *UserHandler) GetMyAchievements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	awards, err := h.achievementService.ListForPlayer(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements": awards,
		"total":        len(awards),
	})
}
