package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/config"
	stats "options_bot/internal/modules/stats/service"
)

func newNotifier(lc fx.Lifecycle, cfg *config.Config, agg *stats.Aggregator, log *zap.Logger) Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return NewStdout(log)
	}
	t, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, func() string {
		return agg.Snapshot().Summary()
	}, log)
	if err != nil {
		log.Warn("telegram unavailable, notifications go to log", zap.Error(err))
		return NewStdout(log)
	}

	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			t.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			t.Stop()
			return nil
		},
	})
	return t
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(newNotifier),
	)
}
