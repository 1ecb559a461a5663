package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
	"github.com/rl-arena/trivia-arena-backend/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, *ratelimit.Info, error) {
	return false, nil, errors.New("redis down")
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	manager := jwtutil.NewJWTManager("secret", time.Hour)
	token, err := manager.Generate("user-1", "alice", "alice@example.com")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(manager), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})

	expired, err := jwtutil.NewJWTManager("secret", -time.Minute).Generate("user-1", "alice", "alice@example.com")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantKind string
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK, ""},
		{"query token", "", "?token=" + token, http.StatusOK, ""},
		{"missing", "", "", http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized, "unauthorized"},
		{"invalid token", "Bearer nope", "", http.StatusUnauthorized, "unauthorized"},
		{"expired token", "Bearer " + expired, "", http.StatusUnauthorized, KindTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "user-1", w.Body.String())
				return
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["kind"])
		})
	}
}

func TestRateLimit_LimitsPerKey(t *testing.T) {
	limiter := ratelimit.NewLocalLimiter()
	t.Cleanup(limiter.Stop)

	r := gin.New()
	r.GET("/", RateLimit(RateLimitConfig{
		Limiter: limiter,
		Limit:   2,
		Window:  time.Minute,
		KeyFunc: IPKeyFunc,
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 다른 IP 는 별도 버킷
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(RateLimitConfig{Limiter: failingLimiter{}, Limit: 1}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestUserKeyFunc_RequiresAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", MatchmakingRateLimit(failingLimiter{}, 10), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://trivia.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://trivia.example.com")
	w := serve(r, req)
	assert.Equal(t, "https://trivia.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://trivia.example.com")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}
