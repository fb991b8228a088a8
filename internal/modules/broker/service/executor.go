package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"options_bot/internal/models"
)

var ErrInvalidStake = errors.New("broker: stake must be positive")

type Executor interface {
	Execute(ctx context.Context, order models.Order) (models.TradeResult, error)
}

// SimulatedExecutor: монетка с заданной вероятностью выигрыша.
// WIN платит payout*stake, LOSS забирает stake.
type SimulatedExecutor struct {
	seed    int64
	winRate float64
	payout  decimal.Decimal

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedExecutor: seed == 0 берётся от текущего времени.
func NewSimulatedExecutor(winRate float64, payout decimal.Decimal, seed int64) *SimulatedExecutor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedExecutor{
		seed:    seed,
		winRate: winRate,
		payout:  payout,
		rnd:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

func (e *SimulatedExecutor) Execute(ctx context.Context, order models.Order) (models.TradeResult, error) {
	if err := ctx.Err(); err != nil {
		return models.TradeResult{}, err
	}
	if !order.Stake.IsPositive() {
		return models.TradeResult{}, ErrInvalidStake
	}
	if !order.Direction.Tradable() {
		return models.TradeResult{}, errors.Errorf("broker: cannot trade direction %q", order.Direction)
	}

	e.mu.Lock()
	win := e.rnd.Float64() < e.winRate
	e.mu.Unlock()

	res := models.TradeResult{
		Order:     order,
		Outcome:   models.OutcomeLoss,
		Amount:    order.Stake.Neg(),
		SettledAt: time.Now(),
	}
	if win {
		res.Outcome = models.OutcomeWin
		res.Amount = order.Stake.Mul(e.payout)
	}
	return res, nil
}
