// Package cli trivia-arena 명령줄 (serve, migrate, seed)
package cli

import (
	"github.com/spf13/cobra"

	"github.com/rl-arena/trivia-arena-backend/internal/config"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

// Execute 루트 명령 실행
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "trivia-arena",
		Short:         "Two-player trivia game server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default: $CONFIG_PATH)")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newSeedCmd(&configPath))
	return cmd
}

// loadConfig 설정 로드 후 전역 로거 초기화
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Level:       cfg.Server.LogLevel,
		Environment: cfg.Server.Env,
		ServiceName: "trivia-arena",
	})
	return cfg, nil
}
