package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/api/middleware"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

// statusFor 에러 분류별 HTTP 상태 코드
var statusFor = map[service.ErrorKind]int{
	service.KindValidation:       http.StatusBadRequest,
	service.KindUnauthorized:     http.StatusUnauthorized,
	service.KindAuthorization:    http.StatusForbidden,
	service.KindNotFound:         http.StatusNotFound,
	service.KindInvalidState:     http.StatusBadRequest,
	service.KindDuplicateAnswer:  http.StatusConflict,
	service.KindInsufficientData: http.StatusInternalServerError,
	service.KindConflict:         http.StatusConflict,
	service.KindInternal:         http.StatusInternalServerError,
}

// respondError 서비스 에러를 {"error", "kind"} 응답으로 변환
// 내부 에러 메시지는 클라이언트에 노출하지 않는다.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, ok := statusFor[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if kind == service.KindInternal {
		logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		message = "Internal server error"
	}

	c.JSON(status, gin.H{
		"error": message,
		"kind":  string(kind),
	})
}

// badRequest 요청 바디/쿼리 검증 실패
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"kind":  string(service.KindValidation),
	})
}

// currentUserID 인증 미들웨어가 저장한 사용자 ID
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
			"kind":  string(service.KindUnauthorized),
		})
		return "", false
	}
	return userID, true
}
