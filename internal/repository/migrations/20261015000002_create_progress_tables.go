package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 20261015000002_create_progress_tables.up.sql
var createProgressTablesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createProgressTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP TABLE IF EXISTS player_stats;
				DROP TABLE IF EXISTS player_achievements;
				DROP TABLE IF EXISTS achievements;
			`)
			return err
		},
	)
}
