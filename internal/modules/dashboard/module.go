package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/config"
	"options_bot/internal/modules/dashboard/service"
	stats "options_bot/internal/modules/stats/service"
)

func NewMux(cfg *config.Config, agg *stats.Aggregator, state *service.State, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	// три пропущенных опроса подряд: не готов
	service.NewHandlers(agg, state, 3*cfg.PollInterval, log.Named("dashboard")).Register(mux)
	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			log.Info("dashboard listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("dashboard server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("dashboard",
		fx.Provide(
			service.NewState,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
