package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Game        GameConfig        `mapstructure:"game"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Seed        SeedConfig        `mapstructure:"seed"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	Env                string   `mapstructure:"env"`
	LogLevel           string   `mapstructure:"log_level"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig URL 이 비어 있으면 인메모리 저장소 사용
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig URL 이 비어 있으면 Redis 기능 (큐/락/캐시/릴레이) 비활성
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type GameConfig struct {
	RoundsPerMatch    int           `mapstructure:"rounds_per_match"`
	QuestionsPerRound int           `mapstructure:"questions_per_round"`
	BasePoints        int           `mapstructure:"base_points"`
	TimeLimit         time.Duration `mapstructure:"time_limit"`
}

type MaintenanceConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	QueueExpiry   time.Duration `mapstructure:"queue_expiry"`
}

const (
	QueueBackendPostgres = "postgres"
	QueueBackendRedis    = "redis"
)

type QueueConfig struct {
	Backend string `mapstructure:"backend"`
}

type CacheConfig struct {
	QuestionTTL time.Duration `mapstructure:"question_ttl"`
}

// KafkaConfig 브로커가 없으면 이벤트 발행 비활성
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig 사용자당 분당 요청 수
type RateLimitConfig struct {
	MatchmakingPerMinute int `mapstructure:"matchmaking_per_minute"`
	AnswersPerMinute     int `mapstructure:"answers_per_minute"`
}

// 환경 변수 이름 (기존 배포 스크립트와 호환)
var envBindings = map[string]string{
	"server.port":                      "PORT",
	"server.env":                       "ENV",
	"server.log_level":                 "LOG_LEVEL",
	"server.cors_allowed_origins":      "CORS_ALLOWED_ORIGINS",
	"database.url":                     "DATABASE_URL",
	"database.max_conns":               "DATABASE_MAX_CONNS",
	"database.min_conns":               "DATABASE_MIN_CONNS",
	"redis.url":                        "REDIS_URL",
	"jwt.secret":                       "JWT_SECRET",
	"jwt.expiration":                   "JWT_EXPIRATION",
	"game.rounds_per_match":            "GAME_ROUNDS_PER_MATCH",
	"game.questions_per_round":         "GAME_QUESTIONS_PER_ROUND",
	"game.base_points":                 "GAME_BASE_POINTS",
	"game.time_limit":                  "GAME_TIME_LIMIT",
	"maintenance.idle_timeout":         "IDLE_TIMEOUT",
	"maintenance.sweep_interval":       "SWEEP_INTERVAL",
	"maintenance.queue_expiry":         "QUEUE_EXPIRY",
	"queue.backend":                    "QUEUE_BACKEND",
	"cache.question_ttl":               "QUESTION_CACHE_TTL",
	"kafka.brokers":                    "KAFKA_BROKERS",
	"kafka.topic":                      "KAFKA_TOPIC",
	"seed.path":                        "SEED_PATH",
	"ratelimit.matchmaking_per_minute": "RATELIMIT_MATCHMAKING_PER_MINUTE",
	"ratelimit.answers_per_minute":     "RATELIMIT_ANSWERS_PER_MINUTE",
}

// Load .env -> 환경 변수 -> 설정 파일 순으로 읽는다
// path 가 비어 있으면 CONFIG_PATH 를 사용
func Load(path string) (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// 환경 변수로 들어온 콤마 구분 목록
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Server.CORSAllowedOrigins = splitList(cfg.Server.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	v.SetDefault("redis.url", "")

	v.SetDefault("jwt.secret", "your-secret-key")
	v.SetDefault("jwt.expiration", 24*time.Hour)

	v.SetDefault("game.rounds_per_match", 5)
	v.SetDefault("game.questions_per_round", 3)
	v.SetDefault("game.base_points", 100)
	v.SetDefault("game.time_limit", 20*time.Second)

	v.SetDefault("maintenance.idle_timeout", 30*time.Minute)
	v.SetDefault("maintenance.sweep_interval", time.Minute)
	v.SetDefault("maintenance.queue_expiry", time.Hour)

	v.SetDefault("queue.backend", QueueBackendPostgres)
	v.SetDefault("cache.question_ttl", 10*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "trivia.match-events")

	v.SetDefault("seed.path", "")

	v.SetDefault("ratelimit.matchmaking_per_minute", 30)
	v.SetDefault("ratelimit.answers_per_minute", 120)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate 실행할 수 없는 설정 거부
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Game.RoundsPerMatch < 1 {
		return errors.New("game.rounds_per_match must be at least 1")
	}
	if c.Game.QuestionsPerRound < 1 {
		return errors.New("game.questions_per_round must be at least 1")
	}
	if c.Game.BasePoints < 1 {
		return errors.New("game.base_points must be positive")
	}
	if c.Game.TimeLimit < 0 {
		return errors.New("game.time_limit must not be negative")
	}
	if c.Game.TimeLimit%time.Second != 0 {
		return errors.New("game.time_limit must be a whole number of seconds (0 disables the limit)")
	}
	if c.Maintenance.IdleTimeout <= 0 || c.Maintenance.SweepInterval <= 0 || c.Maintenance.QueueExpiry <= 0 {
		return errors.New("maintenance durations must be positive")
	}
	switch c.Queue.Backend {
	case QueueBackendPostgres:
	case QueueBackendRedis:
		if c.Redis.URL == "" {
			return errors.New("queue.backend=redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown queue.backend %q", c.Queue.Backend)
	}
	if c.IsProduction() && c.JWT.Secret == "your-secret-key" {
		return errors.New("jwt.secret must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// UsesDatabase false 면 인메모리 백엔드
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}
