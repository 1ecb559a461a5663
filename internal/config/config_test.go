package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Game.RoundsPerMatch)
	assert.Equal(t, 3, cfg.Game.QuestionsPerRound)
	assert.Equal(t, 100, cfg.Game.BasePoints)
	assert.Equal(t, 20*time.Second, cfg.Game.TimeLimit)
	assert.Equal(t, 30*time.Minute, cfg.Maintenance.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Maintenance.SweepInterval)
	assert.Equal(t, QueueBackendPostgres, cfg.Queue.Backend)
	assert.False(t, cfg.UsesDatabase())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Server.CORSAllowedOrigins, 2)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/trivia")
	t.Setenv("GAME_ROUNDS_PER_MATCH", "7")
	t.Setenv("GAME_TIME_LIMIT", "15s")
	t.Setenv("IDLE_TIMEOUT", "45m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.UsesDatabase())
	assert.Equal(t, 7, cfg.Game.RoundsPerMatch)
	assert.Equal(t, 15*time.Second, cfg.Game.TimeLimit)
	assert.Equal(t, 45*time.Minute, cfg.Maintenance.IdleTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
game:
  questions_per_round: 4
queue:
  backend: redis
redis:
  url: redis://localhost:6379/0
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Game.QuestionsPerRound)
	assert.Equal(t, QueueBackendRedis, cfg.Queue.Backend)
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Setenv("CONFIG_PATH", "")
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero rounds", func(c *Config) { c.Game.RoundsPerMatch = 0 }},
		{"zero questions", func(c *Config) { c.Game.QuestionsPerRound = 0 }},
		{"negative time limit", func(c *Config) { c.Game.TimeLimit = -time.Second }},
		{"sub-second time limit", func(c *Config) { c.Game.TimeLimit = 500 * time.Millisecond }},
		{"fractional time limit", func(c *Config) { c.Game.TimeLimit = 1500 * time.Millisecond }},
		{"no idle timeout", func(c *Config) { c.Maintenance.IdleTimeout = 0 }},
		{"unknown queue backend", func(c *Config) { c.Queue.Backend = "kafka" }},
		{"redis queue without redis", func(c *Config) { c.Queue.Backend = QueueBackendRedis; c.Redis.URL = "" }},
		{"default secret in production", func(c *Config) { c.Server.Env = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, valid(t).Validate())

	unlimited := valid(t)
	unlimited.Game.TimeLimit = 0
	assert.NoError(t, unlimited.Validate())
}
