package feed

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/config"
	"options_bot/internal/modules/feed/service"
)

func NewFeed(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) service.Feed {
	if cfg.Feed.Kind != "stream" {
		log.Info("feed: simulated candles", zap.Int64("seed", cfg.SimSeed))
		return service.NewSimulated(cfg.Timeframe(), cfg.SimSeed, nil)
	}

	s := service.NewStream(cfg.Feed.URL, cfg.Timeframe(), cfg.Assets, cfg.HistoryCapacity, log.Named("stream"))
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return s
}

// Module поднимает источник свечей: симуляция или WebSocket-стрим.
func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(
			NewFeed, // service.Feed
		),
	)
}
