package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/rl-arena/trivia-arena-backend/internal/repository/migrations"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cfg.UsesDatabase() {
				return fmt.Errorf("DATABASE_URL is not configured")
			}
			if rollback {
				return rollbackMigrations(cmd.Context(), cfg.Database.URL)
			}
			return runMigrations(cmd.Context(), cfg.Database.URL)
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

func openBun(databaseURL string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(databaseURL)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// runMigrations 적용되지 않은 마이그레이션 실행
func runMigrations(ctx context.Context, databaseURL string) error {
	db := openBun(databaseURL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrator: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if group.IsZero() {
		logger.Info("No new migrations")
		return nil
	}
	logger.Info("Migrations applied", "group", group.String())
	return nil
}

func rollbackMigrations(ctx context.Context, databaseURL string) error {
	db := openBun(databaseURL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrator: %w", err)
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	logger.Info("Migrations rolled back", "group", group.String())
	return nil
}
