package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 20261015000001_create_core_tables.up.sql
var createCoreTablesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP TABLE IF EXISTS matchmaking_history;
				DROP TABLE IF EXISTS answers;
				DROP TABLE IF EXISTS round_questions;
				DROP TABLE IF EXISTS rounds;
				DROP TABLE IF EXISTS matches;
				DROP TABLE IF EXISTS matchmaking_queue;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS categories;
				DROP TABLE IF EXISTS users;
			`)
			return err
		},
	)
}
