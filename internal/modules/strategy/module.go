package strategy

import (
	"go.uber.org/fx"

	"options_bot/internal/modules/config"
	"options_bot/internal/modules/strategy/service"
)

func NewEngine(cfg *config.Config) service.Engine {
	return service.NewFractalMA(service.Periods{
		Fast: cfg.Strategy.FastPeriod,
		Slow: cfg.Strategy.SlowPeriod,
		RSI:  cfg.Strategy.RSIPeriod,
	})
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewEngine, // service.Engine
		),
	)
}
