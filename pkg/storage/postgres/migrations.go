package postgres

import (
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

// Migrations contains the schema of the snapshot tables.
var Migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_snapshots",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS messages (
					id BIGINT PRIMARY KEY,
					topic TEXT NOT NULL,
					content TEXT NOT NULL,
					sender TEXT NOT NULL,
					sender_ip TEXT NOT NULL,
					timestamp TIMESTAMPTZ NOT NULL,
					scheduled BOOLEAN NOT NULL DEFAULT FALSE
				)`,
				`CREATE INDEX IF NOT EXISTS messages_timestamp_idx ON messages (timestamp)`,
				`CREATE TABLE IF NOT EXISTS topics (
					name TEXT PRIMARY KEY,
					position BIGSERIAL
				)`,
				`CREATE TABLE IF NOT EXISTS scheduled_messages (
					id TEXT PRIMARY KEY,
					topic TEXT NOT NULL,
					content TEXT NOT NULL,
					sender TEXT NOT NULL,
					scheduled_time BIGINT NOT NULL,
					client_ip TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS snapshots (
					kind TEXT PRIMARY KEY,
					saved_at TIMESTAMPTZ NOT NULL
				)`,
			},
			Down: []string{
				"DROP TABLE IF EXISTS snapshots",
				"DROP TABLE IF EXISTS scheduled_messages",
				"DROP TABLE IF EXISTS topics",
				"DROP TABLE IF EXISTS messages",
			},
		},
	},
}

// Migrate applies all pending migrations and returns how many were applied.
func Migrate(db *sqlx.DB) (int, error) {
	return migrate.Exec(db.DB, "postgres", Migrations, migrate.Up)
}
