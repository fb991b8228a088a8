package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"options_bot/internal/modules/config"
	"options_bot/pkg/db"
)

func newTxManager(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*db.PgTxManager, error) {
	if cfg.Database.DSN == "" {
		log.Info("database.dsn is empty, trade journal disabled")
		return db.NewPgTxManager(nil), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.Database.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	m := db.NewPgTxManager(poolMaster)
	lc.Append(fx.StopHook(m.Close))
	return m, nil
}

// Module: пул Postgres для журнала сделок.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			newTxManager,
			func(m *db.PgTxManager) db.TxManager { return m },
		),
	)
}
