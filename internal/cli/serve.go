package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl-arena/trivia-arena-backend/internal/config"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if port != "" {
				cfg.Server.Port = port
			}
			if migrate && cfg.UsesDatabase() {
				if err := runMigrations(cmd.Context(), cfg.Database.URL); err != nil {
					return err
				}
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations before serving")
	return cmd
}

func runServer(parent context.Context, cfg *config.Config) error {
	log := logger.L()
	logger.Info("Starting Trivia Arena Backend",
		"port", cfg.Server.Port,
		"env", cfg.Server.Env,
		"storage", storageName(cfg),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	// WebSocket Hub 및 인스턴스 간 알림 릴레이
	go app.hub.Run(ctx)
	if app.relay != nil {
		go func() {
			if err := app.relay.Start(ctx, app.hub.DeliverRelayed); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Notification relay stopped", zap.Error(err))
			}
		}()
		defer app.relay.Stop()
	}

	// 유휴 매치 정리 / 대기열 만료
	if err := app.maintenance.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}
	defer app.maintenance.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

func storageName(cfg *config.Config) string {
	if cfg.UsesDatabase() {
		return "postgres"
	}
	return "memory"
}
