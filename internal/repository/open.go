package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/axellelanca/linkshortener/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store bundles the configured LinkRepository with the function releasing its connections.
type Store struct {
	Links LinkRepository
	Close func() error
}

// Open builds the repository selected by storage.backend. For the SQL backend
// the schema is migrated when migrate is true.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("link store ready", "backend", config.BackendRedis, "addr", cfg.Redis.Addr)
		return &Store{
			Links: NewRedisLinkRepository(client, cfg.Redis.KeyPrefix),
			Close: client.Close,
		}, nil

	case config.BackendSQL, "":
		db, err := OpenDatabase(cfg.Database, enabledLevel(logger))
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
		}
		if migrate {
			if err := Migrate(db); err != nil {
				_ = sqlDB.Close()
				return nil, err
			}
		}
		logger.Info("link store ready", "backend", config.BackendSQL, "driver", cfg.Database.Driver)
		return &Store{
			Links: NewLinkRepository(db),
			Close: sqlDB.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// enabledLevel reports the lowest level enabled on logger so gorm can match it.
func enabledLevel(logger *slog.Logger) slog.Level {
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if logger.Enabled(context.Background(), level) {
			return level
		}
	}
	return slog.LevelError
}
