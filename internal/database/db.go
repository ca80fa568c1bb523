package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared pool. It stays nil when no database is configured.
var DB *pgxpool.Pool

// ErrNoDatabase is returned by queries when ConnectDB has not succeeded.
var ErrNoDatabase = errors.New("database not configured")

// ConnectDB opens the pool described by connStr and pings it.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	return nil
}

// Close releases the pool, if any.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           UUID PRIMARY KEY,
	username     TEXT NOT NULL,
	is_ephemeral BOOLEAN NOT NULL DEFAULT TRUE,
	elo          DOUBLE PRECISION NOT NULL DEFAULT 1500,
	rd           DOUBLE PRECISION NOT NULL DEFAULT 350,
	sigma        DOUBLE PRECISION NOT NULL DEFAULT 0.06,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS game_results (
	game_id      UUID PRIMARY KEY,
	owner_id     UUID NOT NULL,
	winner       TEXT NOT NULL,
	status       TEXT NOT NULL,
	turns        INT NOT NULL,
	player_cards INT NOT NULL,
	ai_cards     INT NOT NULL,
	reshuffles   INT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	ended_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID NOT NULL,
	action_index   INT NOT NULL,
	actor          TEXT NOT NULL,
	owner_id       UUID NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, action_index)
);

CREATE INDEX IF NOT EXISTS game_results_owner_idx ON game_results (owner_id, ended_at DESC);
`

// EnsureSchema creates the tables this service writes to.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return ErrNoDatabase
	}
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
