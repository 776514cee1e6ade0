package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dispute-analytics/internal/config"
)

// Backend bundles the stores selected by persistence.driver. Disputes and
// Alerts are nil when persistence is disabled.
type Backend struct {
	Disputes DisputeStore
	Alerts   AlertStore
	Locker   AdvisoryLocker
}

// Close releases the underlying store.
func (b *Backend) Close() error {
	if b == nil || b.Disputes == nil {
		return nil
	}
	return b.Disputes.Close()
}

// Open connects the backend named by cfg.Persistence.Driver.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Persistence.Driver {
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if _, err := Migrate(ctx, pool, cfg.Database.MigrationsPath); err != nil {
			pool.Close()
			return nil, err
		}
		store := NewStore(pool)
		return &Backend{Disputes: store, Alerts: store, Locker: store}, nil
	case config.DriverBolt:
		store, err := OpenBolt(cfg.Persistence.BoltPath)
		if err != nil {
			return nil, err
		}
		return &Backend{Disputes: store, Alerts: store}, nil
	case config.DriverNone, "":
		return &Backend{}, nil
	default:
		return nil, fmt.Errorf("unsupported persistence driver %q", cfg.Persistence.Driver)
	}
}

// NewPool configures a PostgreSQL connection pool and verifies it is reachable.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
