package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
)

// 인증 후 context 에 저장되는 키
const (
	ContextUserID   = "userId"
	ContextUsername = "username"
	ContextEmail    = "email"
)

// KindTokenExpired 만료된 토큰 (401)
const KindTokenExpired = "token_expired"

// Auth JWT 인증 미들웨어
// 웹소켓은 헤더를 보낼 수 없으므로 ?token= 쿼리도 허용
func Auth(jwtManager *jwtutil.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"kind":  "unauthorized",
			})
			return
		}

		claims, err := jwtManager.Verify(token)
		if errors.Is(err, jwtutil.ErrExpiredToken) {
			// 클라이언트는 이 kind 를 보고 다시 로그인한다
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Token expired",
				"kind":  KindTokenExpired,
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
				"kind":  "unauthorized",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		return token, token != ""
	}

	// "Bearer <token>" 형식 파싱
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
