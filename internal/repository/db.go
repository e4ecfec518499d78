package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS profiles (
			user_id                 TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			plan_type               TEXT NOT NULL DEFAULT 'free',
			subscription_status     TEXT NOT NULL DEFAULT 'inactive',
			subscription_expires_at TIMESTAMPTZ,
			created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS pix_payments (
			id                TEXT PRIMARY KEY,
			payment_intent_id TEXT NOT NULL UNIQUE,
			email             TEXT NOT NULL,
			amount            BIGINT NOT NULL,
			currency          TEXT NOT NULL DEFAULT 'BRL',
			plan_type         TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'pending',
			paid_at           TIMESTAMPTZ,
			expires_at        TIMESTAMPTZ,
			user_id           TEXT REFERENCES users(id),
			linked_to_user_at TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_pix_payments_email ON pix_payments(email);
		CREATE INDEX IF NOT EXISTS idx_pix_payments_user_id ON pix_payments(user_id);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL REFERENCES users(id),
			mp_subscription_id   TEXT NOT NULL,
			plan_type            TEXT NOT NULL,
			status               TEXT NOT NULL DEFAULT 'authorized',
			start_date           TIMESTAMPTZ NOT NULL,
			next_payment_date    TIMESTAMPTZ NOT NULL,
			amount               BIGINT NOT NULL,
			currency             TEXT NOT NULL DEFAULT 'BRL',
			payment_method_id    TEXT NOT NULL DEFAULT 'pix',
			needs_reconciliation BOOLEAN NOT NULL DEFAULT FALSE,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);

		CREATE TABLE IF NOT EXISTS usage_limits (
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date             DATE NOT NULL,
			corrections_used INT NOT NULL DEFAULT 0,
			rewrites_used    INT NOT NULL DEFAULT 0,
			ai_analyses_used INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
