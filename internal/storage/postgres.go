// Package storage provides Postgres persistence for giveaways and the winner
// ledger, plus the TTL stores backing the status cache and sync debounce.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/AyuTriphasari/baget/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTimeout bounds the initial pool handshake and ping.
const connectTimeout = 10 * time.Second

// PostgresDB owns the pgx connection pool shared by the repositories.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB opens a connection pool and verifies the database is
// reachable before handing it out.
func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}

	poolConfig, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - small positive count from config
	poolConfig.MinConns = 1
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close releases the connection pool.
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool exposes the underlying pool to the repositories.
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping reports whether the database is reachable.
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
