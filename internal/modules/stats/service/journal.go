package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"options_bot/internal/models"
	"options_bot/pkg/db"
)

const createTrades = `CREATE TABLE IF NOT EXISTS trades (
	id          UUID PRIMARY KEY,
	asset       TEXT        NOT NULL,
	direction   TEXT        NOT NULL,
	stake       NUMERIC     NOT NULL,
	outcome     TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL,
	expiry_sec  INTEGER     NOT NULL,
	placed_at   TIMESTAMPTZ NOT NULL,
	settled_at  TIMESTAMPTZ NOT NULL
)`

const insertTrade = `INSERT INTO trades
	(id, asset, direction, stake, outcome, amount, expiry_sec, placed_at, settled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

type TradeStore interface {
	SaveTrade(ctx context.Context, r models.TradeResult) error
}

// Journal пишет итоги сделок в таблицу trades.
type Journal struct {
	tx db.TxManager
}

func NewJournal(tx db.TxManager) *Journal { return &Journal{tx: tx} }

func (j *Journal) Migrate(ctx context.Context) error {
	err := j.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, createTrades)
		return err
	})
	return errors.Wrap(err, "migrate trades")
}

func (j *Journal) SaveTrade(ctx context.Context, r models.TradeResult) error {
	err := j.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, insertTrade,
			r.Order.ID,
			r.Order.Asset,
			string(r.Order.Direction),
			r.Order.Stake.String(),
			string(r.Outcome),
			r.Amount.String(),
			int64(r.Order.Expiration.Seconds()),
			r.Order.PlacedAt,
			r.SettledAt,
		)
		return err
	})
	return errors.Wrapf(err, "save trade %s", r.Order.ID)
}

// JournaledSink дублирует результаты сделок в TradeStore.
// Ошибка записи только логируется: статистика в памяти уже обновлена.
type JournaledSink struct {
	Sink
	store   TradeStore
	log     *zap.Logger
	timeout time.Duration
}

func NewJournaledSink(next Sink, store TradeStore, log *zap.Logger) *JournaledSink {
	return &JournaledSink{Sink: next, store: store, log: log, timeout: 5 * time.Second}
}

func (s *JournaledSink) TradeResult(r models.TradeResult) {
	s.Sink.TradeResult(r)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.SaveTrade(ctx, r); err != nil {
		s.log.Warn("trade journal write failed",
			zap.String("asset", r.Order.Asset),
			zap.String("order", r.Order.ID.String()),
			zap.Error(err))
	}
}
