package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rl-arena/trivia-arena-backend/internal/cache"
	"github.com/rl-arena/trivia-arena-backend/internal/repository"
	"github.com/rl-arena/trivia-arena-backend/internal/seed"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

func newSeedCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, questions and achievements into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.UsesDatabase() {
				return fmt.Errorf("DATABASE_URL is not configured")
			}
			if file == "" {
				file = cfg.Seed.Path
			}

			catalog, err := seed.Load(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := database.Connect(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			pool, err := database.NewPool(ctx, database.PoolConfig{
				URL:      cfg.Database.URL,
				MinConns: cfg.Database.MinConns,
				MaxConns: cfg.Database.MaxConns,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			questions := repository.NewQuestionRepository(pool)
			if _, err := seed.Apply(ctx, catalog, questions, repository.NewAchievementRepository(db), logger.L()); err != nil {
				return err
			}

			if cfg.Redis.URL == "" {
				return nil
			}
			return invalidateQuestionCache(ctx, cfg.Redis.URL, questions)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "seed YAML file (default: built-in catalog)")
	return cmd
}

// invalidateQuestionCache 실행 중인 서버가 오래된 문제 풀을 쓰지 않도록 삭제
func invalidateQuestionCache(ctx context.Context, redisURL string, loader cache.CategoryLoader) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	n, err := cache.NewQuestionCache(client, loader, 0).InvalidateAll(ctx)
	if err != nil {
		return err
	}
	logger.Info("Question cache invalidated", "categories", n)
	return nil
}
