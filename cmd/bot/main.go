package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"options_bot/internal/modules/broker"
	"options_bot/internal/modules/candles"
	"options_bot/internal/modules/config"
	"options_bot/internal/modules/dashboard"
	"options_bot/internal/modules/feed"
	"options_bot/internal/modules/postgres"
	"options_bot/internal/modules/stats"
	"options_bot/internal/modules/strategy"
	"options_bot/internal/notify"
	"options_bot/internal/runner"
	"options_bot/pkg/logger"
	"options_bot/pkg/tracing"
)

const serviceName = "options_bot"

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(serviceName)
	return logger.New(cfg.Log.Level, cfg.Log.Development)
}

// initTracing зависит от *zap.Logger: к этому моменту logger.InfoLogger уже задан.
func initTracing(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) error {
	if !cfg.Tracing.Enabled {
		return nil
	}
	tracing.SetServiceName(serviceName)
	_, closeFn, err := tracing.InitTracer(tracing.Config{
		Host:     cfg.Tracing.Host,
		Port:     cfg.Tracing.Port,
		LogSpans: cfg.Log.Development,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		config.Module(),
		fx.Provide(newLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(initTracing),

		postgres.Module(),
		candles.Module(),
		strategy.Module(),
		feed.Module(),
		stats.Module(),
		broker.Module(),
		notify.Module(),
		dashboard.Module(),
		runner.Module(),
	)
	app.Run()
}
