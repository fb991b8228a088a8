package candles

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/candles/service"
	"options_bot/internal/modules/config"
)

func newStore(cfg *config.Config) *service.Store {
	return service.NewStore(cfg.Assets, cfg.HistoryCapacity)
}

func newCheckpoint(lc fx.Lifecycle, cfg *config.Config) service.Checkpoint {
	if cfg.Redis.Addr == "" {
		return service.NopCheckpoint{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	return service.NewRedisCheckpoint(client)
}

// Module поднимает хранилище свечей и восстанавливает timestamps из чекпоинта.
func Module() fx.Option {
	return fx.Module("candles",
		fx.Provide(
			newStore,
			newCheckpoint,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Store, cp service.Checkpoint, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := service.RestoreAll(ctx, s, cp); err != nil {
						// без чекпоинта просто начинаем с нуля
						log.Warn("checkpoint restore failed", zap.Error(err))
					}
					return nil
				},
			})
		}),
	)
}
