package broker

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/broker/service"
	"options_bot/internal/modules/config"
)

func newAuthenticator(cfg *config.Config) service.Authenticator {
	return service.NewHTTPAuthenticator(cfg.Auth.Endpoint)
}

func newExecutor(cfg *config.Config) service.Executor {
	return service.NewSimulatedExecutor(cfg.SimWinRate, cfg.PayoutRate(), cfg.SimSeed)
}

// Module: логин на старте и исполнение ордеров.
func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			newAuthenticator,
			newExecutor,
			service.NewSession,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, a service.Authenticator, s *service.Session, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					creds := service.Credentials{Email: cfg.Auth.Email, Password: cfg.Auth.Password}
					if err := s.Connect(ctx, a, creds); err != nil {
						log.Warn("login failed, running in SIMULATION mode", zap.Error(err))
						return nil
					}
					log.Info("login ok", zap.String("mode", string(s.Mode())))
					return nil
				},
			})
		}),
	)
}
