// Package migrations 스키마 마이그레이션 (bun migrate)
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
