package stats

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/config"
	"options_bot/internal/modules/stats/service"
	"options_bot/pkg/db"
)

func newAggregator(cfg *config.Config) *service.Aggregator {
	return service.NewAggregator(cfg.Assets, cfg.StartBalance(), cfg.HistoryLimit)
}

func newSink(lc fx.Lifecycle, agg *service.Aggregator, tx db.TxManager, log *zap.Logger) service.Sink {
	if !tx.Enabled() {
		return agg
	}
	j := service.NewJournal(tx)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return j.Migrate(ctx)
		},
	})
	return service.NewJournaledSink(agg, j, log)
}

func Module() fx.Option {
	return fx.Module("stats",
		fx.Provide(
			newAggregator,
			newSink,
		),
	)
}
