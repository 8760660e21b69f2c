package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/marketdash/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig, appName string) (*pgxpool.Pool, error) {
	poolCfg, err := ParsePoolConfig(cfg, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// ParsePoolConfig builds the pgxpool configuration without connecting.
func ParsePoolConfig(cfg config.DBConfig, appName string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg, appName))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)
	return poolCfg, nil
}

// Schema creates the ticks table when it does not exist. The hypertable
// conversion is skipped on plain PostgreSQL.
const Schema = `
CREATE TABLE IF NOT EXISTS ticks (
	exchange_ts TIMESTAMPTZ      NOT NULL,
	received_at TIMESTAMPTZ      NOT NULL,
	symbol      TEXT             NOT NULL,
	bid         DOUBLE PRECISION NOT NULL,
	ask         DOUBLE PRECISION NOT NULL,
	last_price  DOUBLE PRECISION NOT NULL,
	volume      DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, exchange_ts)
);
DO $$
BEGIN
	IF EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb') THEN
		PERFORM create_hypertable('ticks', 'exchange_ts', if_not_exists => TRUE);
	END IF;
END
$$;
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
