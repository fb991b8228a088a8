package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"options_bot/internal/models"
	broker "options_bot/internal/modules/broker/service"
	candles "options_bot/internal/modules/candles/service"
	feed "options_bot/internal/modules/feed/service"
	stats "options_bot/internal/modules/stats/service"
	strategy "options_bot/internal/modules/strategy/service"
	"options_bot/internal/notify"
)

// Wallet резервирует ставку на время исполнения ордера.
type Wallet interface {
	Reserve(stake decimal.Decimal) bool
	Release(stake decimal.Decimal)
	Available() decimal.Decimal
}

// Heartbeat: то, что видит /healthz.
type Heartbeat interface {
	TouchTick(t time.Time)
	SetWSConnected(v bool)
}

type Config struct {
	PollInterval     time.Duration
	FeedTimeout      time.Duration
	ExecutionTimeout time.Duration
	ReportInterval   time.Duration
	FetchCount       int
	MaxParallel      int
	Stake            decimal.Decimal
	Expiration       time.Duration
}

type Deps struct {
	Store      *candles.Store
	Checkpoint candles.Checkpoint
	Feed       feed.Feed
	Engine     strategy.Engine
	Executor   broker.Executor
	Sink       stats.Sink
	Wallet     Wallet
	Notifier   notify.Notifier
	Heartbeat  Heartbeat
	Report     func() string
	Log        *zap.Logger
}

// Runner раз в PollInterval прогоняет все активы через feed → store → strategy → executor.
type Runner struct {
	cfg Config
	Deps

	orders atomic.Int64
	ticks  atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, d Deps) *Runner {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.FetchCount <= 0 {
		cfg.FetchCount = 30
	}
	if d.Checkpoint == nil {
		d.Checkpoint = candles.NopCheckpoint{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Runner{cfg: cfg, Deps: d}
}

func (r *Runner) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.pollLoop(ctx)
	if r.cfg.ReportInterval > 0 && r.Report != nil {
		go r.reportLoop(ctx)
	}
	r.Log.Info("runner started",
		zap.String("strategy", r.Engine.Name()),
		zap.Strings("assets", r.Store.Assets()),
		zap.Duration("poll", r.cfg.PollInterval))
}

// Stop останавливает опрос и ждёт текущий тик целиком.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		r.Log.Info("runner stopped", zap.Int64("ticks", r.ticks.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) Ticks() int64 { return r.ticks.Load() }

func (r *Runner) pollLoop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Log.Info("[REPORT] " + r.Report())
		}
	}
}

// Tick: один проход по всем активам. Активы независимы и идут параллельно до MaxParallel.
func (r *Runner) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(r.cfg.MaxParallel)
	for _, asset := range r.Store.Assets() {
		g.Go(func() error {
			// после Stop новые активы не начинаем, начатые доводим
			if ctx.Err() != nil {
				return nil
			}
			r.evaluate(ctx, asset)
			return nil
		})
	}
	_ = g.Wait()

	r.ticks.Add(1)
	if r.Heartbeat != nil {
		r.Heartbeat.TouchTick(time.Now())
		r.Heartbeat.SetWSConnected(r.Feed.Connected())
	}
}

func (r *Runner) evaluate(ctx context.Context, asset string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.evaluate")
	span.SetTag("asset", asset)
	defer span.Finish()

	log := r.Log.With(zap.String("asset", asset))

	fctx, cancel := context.WithTimeout(ctx, r.cfg.FeedTimeout)
	batch, err := r.Feed.Fetch(fctx, asset, r.cfg.FetchCount)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			log.Debug("fetch cancelled by shutdown")
		case errors.Is(err, feed.ErrNoData):
			log.Debug("no candles yet")
		default:
			span.SetTag("error", true)
			log.Warn("feed fetch failed, skipping asset this tick", zap.Error(err))
		}
		return
	}

	fresh := 0
	for _, c := range batch {
		if !r.Store.Append(asset, c) {
			continue
		}
		fresh++
		r.Sink.NewCandle(asset, c)
		log.Debug("candle", zap.Time("at", c.Time()), zap.String("ohlc", c.String()))
	}
	span.SetTag("fresh", fresh)
	if fresh == 0 {
		return
	}

	// дальше ничего не отменяем: оценка и исполнение доводятся до конца
	ctx = context.WithoutCancel(ctx)

	if ts, ok := r.Store.LastAccepted(asset); ok {
		if err := r.Checkpoint.Save(ctx, asset, ts); err != nil {
			log.Warn("checkpoint save failed", zap.Error(err))
		}
	}

	window := r.Store.Window(asset, max(r.Engine.Lookback(), 3))
	a := r.Engine.Analyze(window)
	for _, kind := range a.Flags.Kinds() {
		r.Sink.FractalDetected(asset, kind)
	}
	if !a.Direction.Tradable() {
		return
	}

	last := window[len(window)-1]
	sig := models.Signal{
		Asset:     asset,
		Direction: a.Direction,
		Price:     last.Close,
		Timestamp: last.Timestamp,
		Reason:    a.Reason(),
	}
	r.Sink.Signal(sig)
	span.SetTag("signal", string(sig.Direction))
	log.Info("[SIGNAL]",
		zap.String("direction", string(sig.Direction)),
		zap.Float64("price", sig.Price),
		zap.String("reason", sig.Reason))

	r.trade(ctx, sig, log)
}

func (r *Runner) trade(ctx context.Context, sig models.Signal, log *zap.Logger) {
	stake := r.cfg.Stake
	if r.Wallet != nil {
		if !r.Wallet.Reserve(stake) {
			log.Warn("insufficient balance, order skipped",
				zap.String("available", r.Wallet.Available().StringFixed(2)),
				zap.String("stake", stake.StringFixed(2)))
			return
		}
		// резерв снимается после того, как результат попал в баланс
		defer r.Wallet.Release(stake)
	}

	order := models.NewOrder(sig.Asset, sig.Direction, stake, r.cfg.Expiration)
	n := r.orders.Add(1)

	ectx, cancel := context.WithTimeout(ctx, r.cfg.ExecutionTimeout)
	defer cancel()
	res, err := r.Executor.Execute(ectx, order)
	if err != nil {
		log.Error("order execution failed", zap.Int64("order_no", n), zap.Error(err))
		return
	}

	r.Sink.TradeResult(res)
	log.Info("[TRADE]",
		zap.Int64("order_no", n),
		zap.String("order_id", order.ID.String()),
		zap.String("direction", string(order.Direction)),
		zap.String("outcome", string(res.Outcome)),
		zap.String("amount", res.Amount.StringFixed(2)))

	if r.Notifier != nil {
		emoji := "❌"
		if res.Outcome == models.OutcomeWin {
			emoji = "✅"
		}
		r.Notifier.Sendf(ctx, "%s #%d %s %s stake=%s → %s %s",
			emoji, n, sig.Asset, sig.Direction, stake.StringFixed(2), res.Outcome, res.Amount.StringFixed(2))
	}
}
