package cli

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/api"
	"github.com/rl-arena/trivia-arena-backend/internal/api/handlers"
	"github.com/rl-arena/trivia-arena-backend/internal/cache"
	"github.com/rl-arena/trivia-arena-backend/internal/config"
	"github.com/rl-arena/trivia-arena-backend/internal/repository"
	"github.com/rl-arena/trivia-arena-backend/internal/repository/memory"
	"github.com/rl-arena/trivia-arena-backend/internal/seed"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
	"github.com/rl-arena/trivia-arena-backend/internal/websocket"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
	"github.com/rl-arena/trivia-arena-backend/pkg/distributed"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
	"github.com/rl-arena/trivia-arena-backend/pkg/leaderboard"
	"github.com/rl-arena/trivia-arena-backend/pkg/ratelimit"
)

const matchmakingQueueName = "matchmaking"

// stores 서비스가 사용하는 저장소 묶음 (Postgres 또는 인메모리)
type stores struct {
	users        service.UserStore
	matches      service.MatchStore
	questions    service.QuestionBank
	loader       cache.CategoryLoader
	queue        service.MatchQueue
	achievements service.AchievementStore
	stats        service.StatsStore
}

// application 조립된 서버 구성 요소
type application struct {
	router      *gin.Engine
	hub         *websocket.Hub
	relay       *distributed.NotificationRelay
	maintenance *service.MaintenanceService

	closers []func()
}

// Close 역순으로 자원 해제
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApplication 설정에 따라 저장소/서비스/라우터 조립
// DATABASE_URL 이 없으면 인메모리 저장소, REDIS_URL 이 없으면 로컬 구현을 쓴다.
func buildApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	checks := map[string]handlers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		app.closers = append(app.closers, func() { _ = redisClient.Close() })

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info("Redis connection established")
	}

	var st stores
	if cfg.UsesDatabase() {
		st, err = app.postgresStores(ctx, cfg, checks)
	} else {
		st, err = app.memoryStores(ctx, cfg, log)
	}
	if err != nil {
		return nil, err
	}

	if redisClient != nil {
		if cfg.Queue.Backend == config.QueueBackendRedis {
			st.queue = distributed.NewRedisMatchQueue(redisClient, matchmakingQueueName)
			log.Info("Using Redis matchmaking queue")
		}
		questionCache := cache.NewQuestionCache(redisClient, st.loader, cfg.Cache.QuestionTTL)
		// 이전 실행이나 재시드로 남은 풀은 버린다
		if n, err := questionCache.InvalidateAll(ctx); err != nil {
			log.Warn("Failed to reset question cache", zap.Error(err))
		} else {
			log.Debug("Question cache reset", zap.Int("categories", n))
		}
		st.questions = questionCache
	}

	// 알림
	app.hub = websocket.NewHub(log, cfg.Server.CORSAllowedOrigins)
	if redisClient != nil {
		app.relay = distributed.NewNotificationRelay(redisClient, log)
		app.hub.SetRelay(app.relay)
	}

	// 이벤트
	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		p := events.NewPublisher(events.NewKafkaProducer(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}), log)
		app.closers = append(app.closers, func() { _ = p.Close() })
		publisher = p
		log.Info("Kafka event publishing enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// 서비스
	settings := service.GameSettings{
		RoundsPerMatch:    cfg.Game.RoundsPerMatch,
		QuestionsPerRound: cfg.Game.QuestionsPerRound,
		BasePoints:        cfg.Game.BasePoints,
		TimeLimit:         cfg.Game.TimeLimit,
	}

	stats := service.NewStatsService(st.stats, st.users, log)
	achievements := service.NewAchievementService(st.achievements, st.matches, log)
	achievements.SetNotifier(app.hub)
	game := service.NewGameService(st.matches, st.questions, achievements, stats, log)
	game.SetNotifier(app.hub)
	matchmaking := service.NewMatchmakingService(st.queue, st.users, st.matches, settings, log)
	matchmaking.SetNotifier(app.hub)

	app.maintenance = service.NewMaintenanceService(st.matches, st.queue, service.MaintenanceConfig{
		IdleTimeout:   cfg.Maintenance.IdleTimeout,
		SweepInterval: cfg.Maintenance.SweepInterval,
		QueueExpiry:   cfg.Maintenance.QueueExpiry,
	}, log)
	app.maintenance.SetNotifier(app.hub)

	if publisher != nil {
		game.SetEventPublisher(publisher)
		matchmaking.SetEventPublisher(publisher)
		app.maintenance.SetEventPublisher(publisher)
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		stats.SetBoard(leaderboard.New(redisClient, leaderboard.DefaultKey))
		app.maintenance.SetLocker(distributed.NewRedisLockManager(redisClient))
		limiter = ratelimit.NewRedisRateLimiter(redisClient, "ratelimit")
	} else {
		local := ratelimit.NewLocalLimiter()
		app.closers = append(app.closers, local.Stop)
		limiter = local
	}

	app.router = api.SetupRouter(cfg, api.Dependencies{
		Users:        service.NewUserService(st.users),
		Matchmaking:  matchmaking,
		Game:         game,
		Stats:        stats,
		Achievements: achievements,
		Hub:          app.hub,
		JWT:          jwtutil.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration),
		Limiter:      limiter,
		HealthChecks: checks,
	})
	return app, nil
}

func (a *application) postgresStores(ctx context.Context, cfg *config.Config, checks map[string]handlers.Pinger) (stores, error) {
	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	checks["postgres"] = db.PingContext

	// 문제 카탈로그 조회는 pgx 풀 사용
	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:      cfg.Database.URL,
		MinConns: cfg.Database.MinConns,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, pool.Close)

	questions := repository.NewQuestionRepository(pool)
	return stores{
		users:        repository.NewUserRepository(db),
		matches:      repository.NewMatchRepository(db),
		questions:    questions,
		loader:       questions,
		queue:        repository.NewMatchmakingRepository(db),
		achievements: repository.NewAchievementRepository(db),
		stats:        repository.NewStatsRepository(db),
	}, nil
}

// memoryStores 로컬 개발용 (재시작 시 데이터 유실), 카탈로그를 바로 시드한다
func (a *application) memoryStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (stores, error) {
	log.Warn("DATABASE_URL not set, using in-memory storage")

	store := memory.NewStore()
	bank := memory.NewQuestionBank()

	catalog, err := seed.Load(cfg.Seed.Path)
	if err != nil {
		return stores{}, err
	}
	if _, err := seed.Apply(ctx, catalog, bank, store, log); err != nil {
		return stores{}, err
	}

	return stores{
		users:        store,
		matches:      store,
		questions:    bank,
		loader:       bank,
		queue:        memory.NewMatchQueue(),
		achievements: store,
		stats:        store,
	}, nil
}
