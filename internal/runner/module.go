package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	broker "options_bot/internal/modules/broker/service"
	candles "options_bot/internal/modules/candles/service"
	"options_bot/internal/modules/config"
	dashboard "options_bot/internal/modules/dashboard/service"
	feed "options_bot/internal/modules/feed/service"
	stats "options_bot/internal/modules/stats/service"
	strategy "options_bot/internal/modules/strategy/service"
	"options_bot/internal/notify"
)

type Params struct {
	fx.In

	Cfg        *config.Config
	Store      *candles.Store
	Checkpoint candles.Checkpoint
	Feed       feed.Feed
	Engine     strategy.Engine
	Executor   broker.Executor
	Sink       stats.Sink
	Stats      *stats.Aggregator
	Notifier   notify.Notifier
	State      *dashboard.State
	Log        *zap.Logger
}

func NewRunner(p Params) *Runner {
	return New(Config{
		PollInterval:     p.Cfg.PollInterval,
		FeedTimeout:      p.Cfg.FeedTimeout,
		ExecutionTimeout: p.Cfg.ExecutionTimeout,
		ReportInterval:   p.Cfg.ReportInterval,
		FetchCount:       p.Cfg.FetchCount,
		MaxParallel:      p.Cfg.MaxParallelAssets,
		Stake:            p.Cfg.StakeAmount(),
		Expiration:       p.Cfg.Expiration(),
	}, Deps{
		Store:      p.Store,
		Checkpoint: p.Checkpoint,
		Feed:       p.Feed,
		Engine:     p.Engine,
		Executor:   p.Executor,
		Sink:       p.Sink,
		Wallet:     p.Stats,
		Notifier:   p.Notifier,
		Heartbeat:  p.State,
		Report:     func() string { return p.Stats.Snapshot().Summary() },
		Log:        p.Log.Named("runner"),
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewRunner, // *Runner
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			r *Runner,
			session *broker.Session,
			agg *stats.Aggregator,
			state *dashboard.State,
			n notify.Notifier,
		) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					agg.SetMode(string(session.Mode()))
					r.Start(context.Background())
					state.SetReady(true)
					n.Sendf(ctx, "🚀 Бот запущен: режим %s, баланс %s", session.Mode(), agg.Balance().StringFixed(2))
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					return r.Stop(ctx)
				},
			})
		}),
	)
}
