package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
	"github.com/rl-arena/trivia-arena-backend/pkg/ratelimit"
)

// RateLimitConfig Rate Limit 설정
type RateLimitConfig struct {
	Limiter ratelimit.Limiter         // 로컬 또는 Redis
	Name    string                    // 키 접두사 (엔드포인트 그룹)
	Limit   int                       // 윈도우 내 최대 요청 수
	Window  time.Duration             // 윈도우 크기
	KeyFunc func(*gin.Context) string // 키 추출 함수
}

// DefaultKeyFunc 인증된 경우 사용자 ID, 아니면 IP
func DefaultKeyFunc(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// IPKeyFunc IP 기반 (인증 전 엔드포인트)
func IPKeyFunc(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// UserKeyFunc 사용자 ID 기반 (Auth 이후에만 사용)
func UserKeyFunc(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return "user:" + userID
	}
	return ""
}

// RateLimit 요청 제한 미들웨어
// Limiter 오류 시 요청을 허용한다 (fail-open).
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}
	if config.Limit <= 0 {
		config.Limit = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required for rate limiting",
				"kind":  "unauthorized",
			})
			return
		}
		if config.Name != "" {
			key = config.Name + ":" + key
		}

		allowed, info, err := config.Limiter.Allow(c.Request.Context(), key, config.Limit, config.Window)
		if err != nil {
			logger.Warn("Rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(info.ResetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"kind":       "rate_limited",
				"message":    fmt.Sprintf("Too many requests. Limit: %d per %v", config.Limit, config.Window),
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// MatchmakingRateLimit 매칭 요청 (사용자당 분당 perMinute 회)
func MatchmakingRateLimit(limiter ratelimit.Limiter, perMinute int) gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Limiter: limiter,
		Name:    "matchmaking",
		Limit:   perMinute,
		Window:  time.Minute,
		KeyFunc: UserKeyFunc,
	})
}

// AnswerRateLimit 답변 제출 (사용자당 분당 perMinute 회)
func AnswerRateLimit(limiter ratelimit.Limiter, perMinute int) gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Limiter: limiter,
		Name:    "answers",
		Limit:   perMinute,
		Window:  time.Minute,
		KeyFunc: UserKeyFunc,
	})
}

// AuthRateLimit 로그인/회원가입 (IP 당 분당 10회)
func AuthRateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return RateLimit(RateLimitConfig{
		Limiter: limiter,
		Name:    "auth",
		Limit:   10,
		Window:  time.Minute,
		KeyFunc: IPKeyFunc,
	})
}
