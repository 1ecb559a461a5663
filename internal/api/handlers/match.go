package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/service"
)

type MatchHandler struct {
	gameService *service.GameService
}

func NewMatchHandler(gameService *service.GameService) *MatchHandler {
	return &MatchHandler{
		gameService: gameService,
	}
}

type ChooseCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type SubmitAnswerRequest struct {
	QuestionNumber int    `json:"questionNumber" binding:"required"`
	Answer         string `json:"answer"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

// ListCategories 선택 가능한 카테고리 목록
func (h *MatchHandler) ListCategories(c *gin.Context) {
	categories, err := h.gameService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"total":      len(categories),
	})
}

// ListActive 진행 중인 내 매치
func (h *MatchHandler) ListActive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	matches, err := h.gameService.ListActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"total":   len(matches),
	})
}

// History 종료된 매치 기록 (페이지네이션)
func (h *MatchHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultHistoryLimit)))

	matches, err := h.gameService.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"page":    page,
		"limit":   limit,
	})
}

// GetMatch 매치 상태 (점수, 승자)
func (h *MatchHandler) GetMatch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.gameService.GetStatus(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Forfeit 기권 (상대가 승리)
func (h *MatchHandler) Forfeit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.gameService.Forfeit(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetActiveRound 현재 플레이어가 진행해야 할 라운드
func (h *MatchHandler) GetActiveRound(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	round, err := h.gameService.GetActiveRound(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, round)
}

// ChooseCategory 라운드 카테고리 선택
func (h *MatchHandler) ChooseCategory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChooseCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameService.ChooseCategory(
		c.Request.Context(),
		c.Param("id"),
		c.Param("roundId"),
		userID,
		req.Category,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRoundQuestions 라운드 문제 (정답 제외)
func (h *MatchHandler) GetRoundQuestions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	questions, err := h.gameService.GetRoundQuestions(c.Request.Context(), c.Param("id"), c.Param("roundId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
	})
}

// SubmitAnswer 답변 제출
func (h *MatchHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameService.SubmitAnswer(
		c.Request.Context(),
		c.Param("id"),
		c.Param("roundId"),
		userID,
		req.QuestionNumber,
		req.Answer,
		req.ResponseTimeMs,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
