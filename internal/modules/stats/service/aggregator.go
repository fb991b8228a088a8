package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"options_bot/internal/models"
)

// Sink принимает события пайплайна. Вызовы не возвращают ошибок.
type Sink interface {
	NewCandle(asset string, c models.Candle)
	Signal(sig models.Signal)
	FractalDetected(asset string, kind models.FractalKind)
	TradeResult(r models.TradeResult)
}

type AssetStats struct {
	Asset      string           `json:"asset"`
	Candles    int64            `json:"candles"`
	Signals    int64            `json:"signals"`
	Calls      int64            `json:"calls"`
	Puts       int64            `json:"puts"`
	Peaks      int64            `json:"peaks"`
	Troughs    int64            `json:"troughs"`
	Trades     int64            `json:"trades"`
	Wins       int64            `json:"wins"`
	Losses     int64            `json:"losses"`
	Profit     decimal.Decimal  `json:"profit"`
	LastCandle *models.Candle   `json:"last_candle,omitempty"`
	LastSignal models.Direction `json:"last_signal,omitempty"`
	LastAt     time.Time        `json:"last_signal_at"`
}

type assetEntry struct {
	mu sync.Mutex
	st AssetStats
}

// Snapshot: согласованный срез статистики для дашборда и отчётов.
type Snapshot struct {
	Mode           string          `json:"mode"`
	StartedAt      time.Time       `json:"started_at"`
	UptimeSec      int64           `json:"uptime_sec"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Balance        decimal.Decimal `json:"balance"`
	Profit         decimal.Decimal `json:"profit"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	GrossLoss      decimal.Decimal `json:"gross_loss"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Candles        int64           `json:"candles"`
	Signals        int64           `json:"signals"`
	Trades         int64           `json:"trades"`
	Wins           int64           `json:"wins"`
	Losses         int64           `json:"losses"`
	WinRate        float64         `json:"win_rate"`
	Assets         []AssetStats    `json:"assets"`
}

// Aggregator: единственный владелец статистики.
// Набор активов фиксирован при создании; события по неизвестным активам отбрасываются.
type Aggregator struct {
	startedAt time.Time
	initial   decimal.Decimal
	order     []string
	assets    map[string]*assetEntry

	candles atomic.Int64
	signals atomic.Int64
	trades  atomic.Int64
	wins    atomic.Int64
	losses  atomic.Int64
	mode    atomic.Value // string

	mu        sync.Mutex // balance, reserved, profit, history
	balance   decimal.Decimal
	reserved  decimal.Decimal
	profit    decimal.Decimal
	grossWin  decimal.Decimal
	grossLoss decimal.Decimal
	updatedAt time.Time
	history   []models.TradeResult
	limit     int
}

func NewAggregator(assets []string, initial decimal.Decimal, historyLimit int) *Aggregator {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	a := &Aggregator{
		startedAt: time.Now(),
		initial:   initial,
		assets:    make(map[string]*assetEntry, len(assets)),
		balance:   initial,
		limit:     historyLimit,
	}
	for _, name := range assets {
		if _, dup := a.assets[name]; dup {
			continue
		}
		a.order = append(a.order, name)
		a.assets[name] = &assetEntry{st: AssetStats{Asset: name}}
	}
	a.mode.Store("simulation")
	return a
}

func (a *Aggregator) SetMode(mode string) { a.mode.Store(mode) }
func (a *Aggregator) Mode() string        { return a.mode.Load().(string) }

func (a *Aggregator) update(asset string, fn func(st *AssetStats)) bool {
	e, ok := a.assets[asset]
	if !ok {
		return false
	}
	e.mu.Lock()
	fn(&e.st)
	e.mu.Unlock()
	return true
}

func (a *Aggregator) NewCandle(asset string, c models.Candle) {
	if a.update(asset, func(st *AssetStats) {
		st.Candles++
		st.LastCandle = &c
	}) {
		a.candles.Add(1)
	}
}

func (a *Aggregator) Signal(sig models.Signal) {
	if !sig.Direction.Tradable() {
		return
	}
	if a.update(sig.Asset, func(st *AssetStats) {
		st.Signals++
		if sig.Direction == models.DirectionCall {
			st.Calls++
		} else {
			st.Puts++
		}
		st.LastSignal = sig.Direction
		st.LastAt = time.Unix(sig.Timestamp, 0).UTC()
	}) {
		a.signals.Add(1)
	}
}

func (a *Aggregator) FractalDetected(asset string, kind models.FractalKind) {
	a.update(asset, func(st *AssetStats) {
		switch kind {
		case models.FractalPeak:
			st.Peaks++
		case models.FractalTrough:
			st.Troughs++
		}
	})
}

func (a *Aggregator) TradeResult(r models.TradeResult) {
	win := r.Outcome == models.OutcomeWin
	if !a.update(r.Order.Asset, func(st *AssetStats) {
		st.Trades++
		if win {
			st.Wins++
		} else {
			st.Losses++
		}
		st.Profit = st.Profit.Add(r.Amount)
	}) {
		return
	}

	a.trades.Add(1)
	if win {
		a.wins.Add(1)
	} else {
		a.losses.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(r.Amount)
	a.profit = a.profit.Add(r.Amount)
	if win {
		a.grossWin = a.grossWin.Add(r.Amount)
	} else {
		a.grossLoss = a.grossLoss.Add(r.Amount.Abs())
	}
	a.updatedAt = r.SettledAt
	if len(a.history) == a.limit {
		copy(a.history, a.history[1:])
		a.history = a.history[:len(a.history)-1]
	}
	a.history = append(a.history, r)
}

// Reserve резервирует stake под открываемую сделку, если свободного баланса хватает.
// Каждый успешный Reserve закрывается ровно одним Release.
func (a *Aggregator) Reserve(stake decimal.Decimal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.Sub(a.reserved).LessThan(stake) {
		return false
	}
	a.reserved = a.reserved.Add(stake)
	return true
}

func (a *Aggregator) Release(stake decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reserved = a.reserved.Sub(stake)
	if a.reserved.IsNegative() {
		a.reserved = decimal.Zero
	}
}

// Available: баланс за вычетом зарезервированного.
func (a *Aggregator) Available() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance.Sub(a.reserved)
}

func (a *Aggregator) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Recent: последние limit сделок, новые первыми. limit <= 0: вся история.
func (a *Aggregator) Recent(limit int) []models.TradeResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.TradeResult, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, a.history[i])
	}
	return out
}

func (a *Aggregator) Asset(name string) (AssetStats, bool) {
	e, ok := a.assets[name]
	if !ok {
		return AssetStats{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st, true
}

func (a *Aggregator) Snapshot() Snapshot {
	s := Snapshot{
		Mode:           a.Mode(),
		StartedAt:      a.startedAt,
		UptimeSec:      int64(time.Since(a.startedAt).Seconds()),
		InitialBalance: a.initial,
		Candles:        a.candles.Load(),
		Signals:        a.signals.Load(),
		Trades:         a.trades.Load(),
		Wins:           a.wins.Load(),
		Losses:         a.losses.Load(),
		Assets:         make([]AssetStats, 0, len(a.order)),
	}
	a.mu.Lock()
	s.Balance, s.Profit = a.balance, a.profit
	s.GrossProfit, s.GrossLoss = a.grossWin, a.grossLoss
	s.UpdatedAt = a.updatedAt
	a.mu.Unlock()

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	for _, name := range a.order {
		st, _ := a.Asset(name)
		s.Assets = append(s.Assets, st)
	}
	return s
}

// Summary: одна строка для периодического отчёта в лог.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("mode=%s balance=%s profit=%s trades=%d wins=%d losses=%d win_rate=%.1f%% candles=%d signals=%d",
		s.Mode, s.Balance.StringFixed(2), s.Profit.StringFixed(2), s.Trades, s.Wins, s.Losses, s.WinRate, s.Candles, s.Signals)
}
