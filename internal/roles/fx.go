package roles

import (
	"context"
	"time"

	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/roles/repository"
	"github.com/millwise/shopfloor/internal/roles/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects the optional role-lookup cache. Without
// REDIS_ADDR the service runs uncached.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Warn("redis unreachable, role lookups run uncached", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
	return client
}

func provideCacheTTL(cfg config.Config) time.Duration {
	return cfg.RoleCacheTTL
}

var Module = fx.Module("roles.service",
	fx.Provide(NewRedisClient),
	fx.Provide(fx.Annotate(provideCacheTTL, fx.ResultTags(`name:"role_cache_ttl"`))),
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
