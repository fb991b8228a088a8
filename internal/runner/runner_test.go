package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"options_bot/internal/models"
	candles "options_bot/internal/modules/candles/service"
	feed "options_bot/internal/modules/feed/service"
	stats "options_bot/internal/modules/stats/service"
	strategy "options_bot/internal/modules/strategy/service"
)

const asset = "EURUSD-OTC"

type mockFeed struct{ mock.Mock }

func (m *mockFeed) Fetch(ctx context.Context, asset string, count int) ([]models.Candle, error) {
	args := m.Called(asset, count)
	out, _ := args.Get(0).([]models.Candle)
	return out, args.Error(1)
}
func (m *mockFeed) Connected() bool { return true }
func (m *mockFeed) Name() string    { return "mock" }

type mockEngine struct{ mock.Mock }

func (m *mockEngine) Analyze(window []models.Candle) strategy.Analysis {
	return m.Called(len(window)).Get(0).(strategy.Analysis)
}
func (m *mockEngine) Lookback() int { return 20 }
func (m *mockEngine) Name() string  { return "mock" }

type mockExecutor struct{ mock.Mock }

func (m *mockExecutor) Execute(ctx context.Context, order models.Order) (models.TradeResult, error) {
	args := m.Called(order.Asset, order.Direction)
	res, _ := args.Get(0).(models.TradeResult)
	res.Order = order
	return res, args.Error(1)
}

type memCheckpoint struct {
	mu sync.Mutex
	ts map[string]int64
}

func (c *memCheckpoint) Load(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (c *memCheckpoint) Save(_ context.Context, asset string, ts int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts[asset] = ts
	return nil
}

func candle(ts int64) models.Candle {
	return models.Candle{Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Volume: 100, Timestamp: ts}
}

var stake = decimal.NewFromInt(6)

type fixture struct {
	r    *Runner
	feed *mockFeed
	eng  *mockEngine
	exec *mockExecutor
	agg  *stats.Aggregator
	cp   *memCheckpoint
}

func newFixture(t *testing.T, balance decimal.Decimal) *fixture {
	return newFixtureWith(t, balance, 1, nil, asset)
}

func newFixtureWith(t *testing.T, balance decimal.Decimal, parallel int, log *zap.Logger, assets ...string) *fixture {
	t.Helper()
	f := &fixture{
		feed: &mockFeed{},
		eng:  &mockEngine{},
		exec: &mockExecutor{},
		agg:  stats.NewAggregator(assets, balance, 100),
		cp:   &memCheckpoint{ts: map[string]int64{}},
	}
	f.r = New(Config{
		PollInterval:     10 * time.Millisecond,
		FeedTimeout:      time.Second,
		ExecutionTimeout: time.Second,
		FetchCount:       30,
		MaxParallel:      parallel,
		Stake:            stake,
		Expiration:       time.Minute,
	}, Deps{
		Store:      candles.NewStore(assets, 100),
		Checkpoint: f.cp,
		Feed:       f.feed,
		Engine:     f.eng,
		Executor:   f.exec,
		Sink:       f.agg,
		Wallet:     f.agg,
		Log:        log,
	})
	return f
}

func call() strategy.Analysis {
	return strategy.Analysis{
		Snapshot:  models.Snapshot{FastMA: models.Defined(2), SlowMA: models.Defined(1), RSI: models.Defined(70)},
		Flags:     models.Flags{IsTrough: true},
		Direction: models.DirectionCall,
	}
}

func TestTickSkipsAssetOnFeedError(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(100))
	f.feed.On("Fetch", asset, 30).Return(nil, errors.New("timeout"))

	f.r.Tick(context.Background())

	f.eng.AssertNotCalled(t, "Analyze", mock.Anything)
	assert.EqualValues(t, 0, f.agg.Snapshot().Candles)
	assert.EqualValues(t, 1, f.r.Ticks())
}

func TestTickIgnoresDuplicates(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(100))
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(60), candle(120)}, nil)
	f.eng.On("Analyze", 2).Return(strategy.Analysis{})

	f.r.Tick(context.Background())
	f.r.Tick(context.Background())

	f.eng.AssertNumberOfCalls(t, "Analyze", 1)
	assert.EqualValues(t, 2, f.agg.Snapshot().Candles)
	assert.EqualValues(t, 120, f.cp.ts[asset])
	f.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestTenWinsAccumulateExactProfit(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(1000))
	payout := decimal.RequireFromString("0.8")
	win := models.TradeResult{Outcome: models.OutcomeWin, Amount: stake.Mul(payout)}

	for i := 1; i <= 10; i++ {
		f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(int64(i) * 60)}, nil).Once()
	}
	f.eng.On("Analyze", mock.Anything).Return(call())
	f.exec.On("Execute", asset, models.DirectionCall).Return(win, nil)

	for i := 0; i < 10; i++ {
		f.r.Tick(context.Background())
	}

	s := f.agg.Snapshot()
	assert.EqualValues(t, 10, s.Signals)
	assert.EqualValues(t, 10, s.Trades)
	assert.True(t, s.Profit.Equal(decimal.NewFromInt(10).Mul(payout).Mul(stake)), "profit %s", s.Profit)

	st, _ := f.agg.Asset(asset)
	assert.EqualValues(t, 10, st.Troughs)
}

func TestInsufficientBalanceSkipsExecution(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(5))
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(60)}, nil)
	f.eng.On("Analyze", 1).Return(call())

	f.r.Tick(context.Background())

	f.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	s := f.agg.Snapshot()
	assert.EqualValues(t, 1, s.Signals)
	assert.EqualValues(t, 0, s.Trades)
}

func TestExecutionFailureLeavesStatsUntouched(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(100))
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(60)}, nil)
	f.eng.On("Analyze", 1).Return(call())
	f.exec.On("Execute", asset, models.DirectionCall).Return(nil, errors.New("rejected"))

	f.r.Tick(context.Background())

	s := f.agg.Snapshot()
	assert.EqualValues(t, 0, s.Trades)
	assert.True(t, s.Balance.Equal(decimal.NewFromInt(100)))
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(100))
	f.feed.On("Fetch", asset, 30).Return(nil, errors.New("offline"))

	f.r.Start(context.Background())
	require.Eventually(t, func() bool { return f.r.Ticks() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.r.Stop(ctx))
	n := f.r.Ticks()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, f.r.Ticks())

	assert.NoError(t, f.r.Stop(ctx))
}

func TestParallelAssetsCannotOverspendBalance(t *testing.T) {
	assets := []string{"EURUSD-OTC", "GBPUSD-OTC", "USDJPY-OTC", "AUDUSD-OTC"}
	f := newFixtureWith(t, stake, len(assets), nil, assets...)
	loss := models.TradeResult{Outcome: models.OutcomeLoss, Amount: stake.Neg()}
	for _, a := range assets {
		f.feed.On("Fetch", a, 30).Return([]models.Candle{candle(60)}, nil)
		f.exec.On("Execute", a, models.DirectionCall).Return(loss, nil).After(20 * time.Millisecond)
	}
	f.eng.On("Analyze", 1).Return(call())

	f.r.Tick(context.Background())

	s := f.agg.Snapshot()
	assert.EqualValues(t, 4, s.Signals)
	assert.EqualValues(t, 1, s.Trades)
	assert.True(t, s.Balance.IsZero(), "balance %s", s.Balance)
	assert.True(t, f.agg.Available().IsZero())
	f.exec.AssertNumberOfCalls(t, "Execute", 1)
}

func TestReserveReleasedAfterFailedExecution(t *testing.T) {
	f := newFixture(t, stake)
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(60)}, nil).Once()
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(120)}, nil).Once()
	f.eng.On("Analyze", mock.Anything).Return(call())
	f.exec.On("Execute", asset, models.DirectionCall).Return(nil, errors.New("rejected")).Once()
	f.exec.On("Execute", asset, models.DirectionCall).Return(models.TradeResult{Outcome: models.OutcomeLoss, Amount: stake.Neg()}, nil).Once()

	f.r.Tick(context.Background())
	assert.True(t, f.agg.Available().Equal(stake))

	f.r.Tick(context.Background())
	assert.EqualValues(t, 1, f.agg.Snapshot().Trades)
	f.exec.AssertNumberOfCalls(t, "Execute", 2)
}

// slowExecutor держит ордер delay и падает, если контекст отменили раньше.
type slowExecutor struct {
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (e *slowExecutor) Execute(ctx context.Context, order models.Order) (models.TradeResult, error) {
	e.once.Do(func() { close(e.started) })
	select {
	case <-ctx.Done():
		return models.TradeResult{}, ctx.Err()
	case <-time.After(e.delay):
	}
	return models.TradeResult{Order: order, Outcome: models.OutcomeWin, Amount: stake}, nil
}

func TestStopWaitsForInFlightExecution(t *testing.T) {
	f := newFixture(t, decimal.NewFromInt(100))
	exec := &slowExecutor{delay: 50 * time.Millisecond, started: make(chan struct{})}
	f.r.Executor = exec
	f.feed.On("Fetch", asset, 30).Return([]models.Candle{candle(60)}, nil).Once()
	f.feed.On("Fetch", asset, 30).Return(nil, feed.ErrNoData)
	f.eng.On("Analyze", 1).Return(call())

	f.r.Start(context.Background())
	select {
	case <-exec.started:
	case <-time.After(time.Second):
		t.Fatal("execution did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.r.Stop(ctx))

	s := f.agg.Snapshot()
	assert.EqualValues(t, 1, s.Trades)
	assert.True(t, s.Profit.Equal(stake))
}

func TestCancelledTickSkipsRemainingAssets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixtureWith(t, decimal.NewFromInt(100), 1, zap.New(core), "EURUSD-OTC", "GBPUSD-OTC")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.feed.On("Fetch", "EURUSD-OTC", 30).Run(func(mock.Arguments) { cancel() }).Return(nil, context.Canceled)

	f.r.Tick(ctx)

	f.feed.AssertNotCalled(t, "Fetch", "GBPUSD-OTC", mock.Anything)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("fetch cancelled by shutdown").Len())
}
