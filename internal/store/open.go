package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/rickgao/tpwatch/internal/config"
	"github.com/rickgao/tpwatch/internal/database"
)

// Open connects to the backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "", config.BackendMemory:
		logger.Info("using in-memory subscription store")
		return NewMemory(), nil

	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to postgres subscription store",
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Name,
		)
		return NewPostgres(pool), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis subscription store",
			"addr", cfg.Redis.Addr,
			"db", cfg.Redis.DB,
		)
		return NewRedis(client, cfg.Redis.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
