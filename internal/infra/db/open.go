package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// PoolConfig holds pgx connection pool configuration.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the default connection pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        25,               // shared by repositories and the job queue
		MinConns:        2,                // kept warm for the queue's listener
		ConnMaxLifetime: 1 * time.Hour,    // Maximum lifetime of a connection
		ConnMaxIdleTime: 30 * time.Minute, // Maximum idle time of a connection
	}
}

// ErrMissingDSN is returned when DATABASE_URL is not set.
var ErrMissingDSN = errors.New("DATABASE_URL not set")

// Handles bundles the two views of one connection pool: the native pgx
// pool used by the job queue and a database/sql handle used by the
// repositories. Close releases both.
type Handles struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// Close closes the database/sql wrapper and then the underlying pool.
func (h *Handles) Close() {
	_ = h.DB.Close()
	h.Pool.Close()
}

// Open reads DATABASE_URL and pool settings from the environment, connects,
// and verifies the connection with a ping.
func Open(ctx context.Context) (*Handles, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	return OpenWithConfig(ctx, dsn, getPoolConfigFromEnv())
}

// OpenWithConfig connects to dsn with an explicit pool configuration.
func OpenWithConfig(ctx context.Context, dsn string, cfg PoolConfig) (*Handles, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	pcfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	slog.Info("database connection pool configured",
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established successfully")
	return &Handles{Pool: pool, DB: stdlib.OpenDBFromPool(pool)}, nil
}

// getPoolConfigFromEnv reads pool configuration from environment variables.
// Invalid or non-positive values fall back to the defaults.
func getPoolConfigFromEnv() PoolConfig {
	cfg := DefaultPoolConfig()

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.MaxConns = int32(val)
		}
	}

	if v := os.Getenv("DB_MIN_CONNS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MinConns = int32(val)
		}
	}

	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if val, err := time.ParseDuration(v); err == nil && val > 0 {
			cfg.ConnMaxLifetime = val
		}
	}

	if v := os.Getenv("DB_CONN_MAX_IDLE_TIME"); v != "" {
		if val, err := time.ParseDuration(v); err == nil && val > 0 {
			cfg.ConnMaxIdleTime = val
		}
	}

	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}

	return cfg
}
