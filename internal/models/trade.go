package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

type Order struct {
	ID         uuid.UUID       `json:"id"`
	Asset      string          `json:"asset"`
	Direction  Direction       `json:"direction"`
	Stake      decimal.Decimal `json:"stake"`
	Expiration time.Duration   `json:"expiration"`
	PlacedAt   time.Time       `json:"placed_at"`
}

func NewOrder(asset string, dir Direction, stake decimal.Decimal, expiration time.Duration) Order {
	return Order{
		ID:         uuid.New(),
		Asset:      asset,
		Direction:  dir,
		Stake:      stake,
		Expiration: expiration,
		PlacedAt:   time.Now(),
	}
}

// TradeResult: итог сделки. Amount > 0 на WIN, -stake на LOSS.
type TradeResult struct {
	Order     Order           `json:"order"`
	Outcome   Outcome         `json:"outcome"`
	Amount    decimal.Decimal `json:"amount"`
	SettledAt time.Time       `json:"settled_at"`
}
