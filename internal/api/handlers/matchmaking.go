package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/service"
)

type MatchmakingHandler struct {
	matchmakingService *service.MatchmakingService
}

func NewMatchmakingHandler(matchmakingService *service.MatchmakingService) *MatchmakingHandler {
	return &MatchmakingHandler{
		matchmakingService: matchmakingService,
	}
}

// MatchRequest 상대를 지정하지 않으면 큐에 들어간다
type MatchRequest struct {
	OpponentID *string `json:"opponentId"`
}

// RequestMatch 매칭 요청
// 즉시 매칭되면 201, 대기열에 들어가면 202
func (h *MatchmakingHandler) RequestMatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	result, err := h.matchmakingService.RequestMatch(c.Request.Context(), userID, req.OpponentID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.MatchID == "" {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// LeaveQueue 매칭 대기 취소
func (h *MatchmakingHandler) LeaveQueue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.matchmakingService.Withdraw(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Left matchmaking queue",
	})
}
