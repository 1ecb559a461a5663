package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/config"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/repository/memory"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
	"github.com/rl-arena/trivia-arena-backend/internal/websocket"
	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
	"github.com/rl-arena/trivia-arena-backend/pkg/ratelimit"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, matchmakingPerMinute int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	bank := memory.NewQuestionBank()
	for _, slug := range []string{"science", "history"} {
		require.NoError(t, bank.UpsertCategory(ctx, models.Category{Slug: slug, Name: slug}))
		for i := 1; i <= 5; i++ {
			require.NoError(t, bank.UpsertQuestion(ctx, models.Question{
				Category:      slug,
				Text:          fmt.Sprintf("%s question %d", slug, i),
				Choices:       []string{fmt.Sprintf("Answer %d", i), "Wrong"},
				CorrectAnswer: fmt.Sprintf("Answer %d", i),
			}))
		}
	}

	logger := zap.NewNop()
	hub := websocket.NewHub(logger, nil)

	achievements := service.NewAchievementService(store, store, logger)
	stats := service.NewStatsService(store, store, logger)
	game := service.NewGameService(store, bank, achievements, stats, logger)
	game.SetNotifier(hub)
	settings := service.GameSettings{RoundsPerMatch: 1, QuestionsPerRound: 2, BasePoints: 100, TimeLimit: 20 * time.Second}
	matchmaking := service.NewMatchmakingService(memory.NewMatchQueue(), store, store, settings, logger)
	matchmaking.SetNotifier(hub)

	limiter := ratelimit.NewLocalLimiter()
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{
			MatchmakingPerMinute: matchmakingPerMinute,
			AnswersPerMinute:     100,
		},
	}

	router := SetupRouter(cfg, Dependencies{
		Users:        service.NewUserService(store),
		Matchmaking:  matchmaking,
		Game:         game,
		Stats:        stats,
		Achievements: achievements,
		Hub:          hub,
		JWT:          jwtutil.NewJWTManager("test-secret", time.Hour),
		Limiter:      limiter,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// register 가입 후 (토큰, 사용자 ID)
func (s *testServer) register(name string) (string, string) {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, code, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), user["id"].(string)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, 10)

	code, body := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t, 10)
	s.register("alice")

	tests := []struct {
		name     string
		body     gin.H
		wantCode int
		wantKind string
	}{
		{"valid", gin.H{"email": "alice@example.com", "password": "secret123"}, http.StatusOK, ""},
		{"wrong password", gin.H{"email": "alice@example.com", "password": "nope1234"}, http.StatusUnauthorized, "unauthorized"},
		{"missing email", gin.H{"password": "secret123"}, http.StatusBadRequest, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, body["kind"])
			} else {
				assert.NotEmpty(t, body["token"])
			}
		})
	}

	code, body := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["kind"])
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t, 10)

	code, body := s.do(http.MethodGet, "/api/v1/matches/active", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["kind"])

	code, _ = s.do(http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_QueueThenMatch(t *testing.T) {
	s := newTestServer(t, 10)
	aliceToken, _ := s.register("alice")
	bobToken, _ := s.register("bob")

	code, body := s.do(http.MethodPost, "/api/v1/matchmaking", aliceToken, nil)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "waiting", body["status"])
	assert.Empty(t, body["matchId"])

	code, body = s.do(http.MethodPost, "/api/v1/matchmaking", bobToken, gin.H{})
	assert.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, body["matchId"])
	assert.Equal(t, "active", body["status"])

	code, body = s.do(http.MethodGet, "/api/v1/matches/active", aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
}

func TestRouter_LeaveQueue(t *testing.T) {
	s := newTestServer(t, 10)
	aliceToken, _ := s.register("alice")

	code, _ := s.do(http.MethodPost, "/api/v1/matchmaking", aliceToken, nil)
	require.Equal(t, http.StatusAccepted, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/matchmaking", aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_SelfChallengeIsValidationError(t *testing.T) {
	s := newTestServer(t, 10)
	token, id := s.register("alice")

	code, body := s.do(http.MethodPost, "/api/v1/matchmaking", token, gin.H{"opponentId": id})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["kind"])
}

func TestRouter_PlayFullMatch(t *testing.T) {
	s := newTestServer(t, 10)
	aliceToken, _ := s.register("alice")
	bobToken, bobID := s.register("bob")

	code, body := s.do(http.MethodPost, "/api/v1/matchmaking", aliceToken, gin.H{"opponentId": bobID})
	require.Equal(t, http.StatusCreated, code, body)
	matchID := body["matchId"].(string)
	// 1라운드는 상대(player2)가 고른다
	assert.Equal(t, false, body["yourTurnToChoose"])

	code, body = s.do(http.MethodGet, "/api/v1/matches/"+matchID+"/rounds/active", bobToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	roundID := body["roundId"].(string)
	assert.Equal(t, true, body["yourTurnToChoose"])

	roundPath := "/api/v1/matches/" + matchID + "/rounds/" + roundID

	code, body = s.do(http.MethodPost, roundPath+"/category", aliceToken, gin.H{"category": "science"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "authorization", body["kind"])

	code, body = s.do(http.MethodPost, roundPath+"/category", bobToken, gin.H{"category": "Cooking"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["kind"])

	code, body = s.do(http.MethodPost, roundPath+"/category", bobToken, gin.H{"category": "Science"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "science", body["category"])

	code, body = s.do(http.MethodGet, roundPath+"/questions", aliceToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	questions := body["questions"].([]interface{})
	require.Len(t, questions, 2)

	// alice 는 모두 맞히고 bob 은 모두 틀린다
	var last map[string]interface{}
	for _, raw := range questions {
		q := raw.(map[string]interface{})
		number := int(q["number"].(float64))
		assert.NotContains(t, q, "correctAnswer")

		var n int
		_, err := fmt.Sscanf(q["text"].(string), "science question %d", &n)
		require.NoError(t, err)

		code, body = s.do(http.MethodPost, roundPath+"/answers", aliceToken, gin.H{
			"questionNumber": number,
			"answer":         fmt.Sprintf("answer %d", n),
			"responseTimeMs": 5000,
		})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["correct"])
		assert.EqualValues(t, 75, body["pointsEarned"])

		code, last = s.do(http.MethodPost, roundPath+"/answers", bobToken, gin.H{
			"questionNumber": number,
			"answer":         "Wrong",
			"responseTimeMs": 1000,
		})
		require.Equal(t, http.StatusOK, code, last)
		assert.Equal(t, false, last["correct"])
	}
	assert.Equal(t, true, last["matchFinished"])

	code, body = s.do(http.MethodPost, roundPath+"/answers", aliceToken, gin.H{
		"questionNumber": 1,
		"answer":         "Wrong",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_state", body["kind"])

	code, body = s.do(http.MethodGet, "/api/v1/matches/"+matchID, bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "finished", body["status"])
	assert.EqualValues(t, 150, body["player1Score"])
	assert.EqualValues(t, 0, body["player2Score"])

	code, body = s.do(http.MethodGet, "/api/v1/users/me/stats", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["wins"])
	assert.EqualValues(t, 1, body["rank"])

	code, body = s.do(http.MethodGet, "/api/v1/leaderboard/players/"+bobID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["losses"])
	assert.EqualValues(t, 2, body["rank"])

	code, body = s.do(http.MethodGet, "/api/v1/leaderboard/players/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["kind"])

	code, body = s.do(http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])

	code, body = s.do(http.MethodGet, "/api/v1/matches/history", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["matches"], 1)
}

func TestRouter_DuplicateAnswerIsConflict(t *testing.T) {
	s := newTestServer(t, 10)
	aliceToken, _ := s.register("alice")
	bobToken, bobID := s.register("bob")

	_, body := s.do(http.MethodPost, "/api/v1/matchmaking", aliceToken, gin.H{"opponentId": bobID})
	matchID := body["matchId"].(string)
	_, body = s.do(http.MethodGet, "/api/v1/matches/"+matchID+"/rounds/active", bobToken, nil)
	roundPath := "/api/v1/matches/" + matchID + "/rounds/" + body["roundId"].(string)

	code, _ := s.do(http.MethodPost, roundPath+"/category", bobToken, gin.H{"category": "history"})
	require.Equal(t, http.StatusOK, code)

	answer := gin.H{"questionNumber": 1, "answer": "Wrong", "responseTimeMs": 100}
	code, _ = s.do(http.MethodPost, roundPath+"/answers", aliceToken, answer)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(http.MethodPost, roundPath+"/answers", aliceToken, answer)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_answer", body["kind"])
}

func TestRouter_UnknownMatchAndOutsider(t *testing.T) {
	s := newTestServer(t, 10)
	aliceToken, _ := s.register("alice")
	_, bobID := s.register("bob")
	carolToken, _ := s.register("carol")

	code, body := s.do(http.MethodGet, "/api/v1/matches/00000000-0000-0000-0000-000000000000", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["kind"])

	_, body = s.do(http.MethodPost, "/api/v1/matchmaking", aliceToken, gin.H{"opponentId": bobID})
	matchID := body["matchId"].(string)

	code, body = s.do(http.MethodGet, "/api/v1/matches/"+matchID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "authorization", body["kind"])
}

func TestRouter_MatchmakingRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	token, _ := s.register("alice")

	for i := 0; i < 2; i++ {
		code, _ := s.do(http.MethodPost, "/api/v1/matchmaking", token, nil)
		require.Equal(t, http.StatusAccepted, code)
	}

	code, body := s.do(http.MethodPost, "/api/v1/matchmaking", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", body["kind"])
}
