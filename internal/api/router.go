package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl-arena/trivia-arena-backend/internal/api/handlers"
	"github.com/rl-arena/trivia-arena-backend/internal/api/middleware"
	"github.com/rl-arena/trivia-arena-backend/internal/config"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
	"github.com/rl-arena/trivia-arena-backend/internal/websocket"
	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
	"github.com/rl-arena/trivia-arena-backend/pkg/ratelimit"
)

// Dependencies 라우터가 사용하는 서비스 묶음 (serve 명령에서 조립)
type Dependencies struct {
	Users        *service.UserService
	Matchmaking  *service.MatchmakingService
	Game         *service.GameService
	Stats        *service.StatsService
	Achievements *service.AchievementService
	Hub          *websocket.Hub
	JWT          *jwtutil.JWTManager
	Limiter      ratelimit.Limiter
	HealthChecks map[string]handlers.Pinger
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))

	// Handler 초기화
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Stats, deps.Achievements)
	matchmakingHandler := handlers.NewMatchmakingHandler(deps.Matchmaking)
	matchHandler := handlers.NewMatchHandler(deps.Game)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.Stats)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	auth := middleware.Auth(deps.JWT)

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint
		v1.GET("/ws", auth, wsHandler.HandleWebSocket)

		// Auth routes
		authRoutes := v1.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimit(deps.Limiter))
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/register", authHandler.Register)
		}

		v1.GET("/categories", matchHandler.ListCategories)
		v1.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		v1.GET("/leaderboard/players/:id", leaderboardHandler.GetPlayerStanding)

		// Matchmaking routes
		matchmaking := v1.Group("/matchmaking")
		matchmaking.Use(auth)
		{
			matchmaking.POST("",
				middleware.MatchmakingRateLimit(deps.Limiter, cfg.RateLimit.MatchmakingPerMinute),
				matchmakingHandler.RequestMatch)
			matchmaking.DELETE("", matchmakingHandler.LeaveQueue)
		}

		// Match routes
		matches := v1.Group("/matches")
		matches.Use(auth)
		{
			matches.GET("/active", matchHandler.ListActive)
			matches.GET("/history", matchHandler.History)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.POST("/:id/forfeit", matchHandler.Forfeit)

			matches.GET("/:id/rounds/active", matchHandler.GetActiveRound)
			matches.POST("/:id/rounds/:roundId/category", matchHandler.ChooseCategory)
			matches.GET("/:id/rounds/:roundId/questions", matchHandler.GetRoundQuestions)
			matches.POST("/:id/rounds/:roundId/answers",
				middleware.AnswerRateLimit(deps.Limiter, cfg.RateLimit.AnswersPerMinute),
				matchHandler.SubmitAnswer)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(auth)
		{
			users.GET("/me", userHandler.GetCurrentUser)
			users.PUT("/me", userHandler.UpdateCurrentUser)
			users.GET("/me/stats", userHandler.GetMyStats)
			users.GET("/me/achievements", userHandler.GetMyAchievements)
		}
	}

	return router
}
