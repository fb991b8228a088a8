package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options_bot/internal/models"
)

func TestSimulatedExecutorOutcomes(t *testing.T) {
	stake := decimal.NewFromInt(6)
	order := models.NewOrder("EURUSD-OTC", models.DirectionCall, stake, time.Minute)

	win, err := NewSimulatedExecutor(1, decimal.NewFromFloat(0.8), 1).Execute(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWin, win.Outcome)
	assert.True(t, win.Amount.Equal(decimal.RequireFromString("4.8")))
	assert.Equal(t, order.ID, win.Order.ID)

	loss, err := NewSimulatedExecutor(0, decimal.NewFromFloat(0.8), 1).Execute(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLoss, loss.Outcome)
	assert.True(t, loss.Amount.Equal(decimal.NewFromInt(-6)))
}

func TestSimulatedExecutorRejects(t *testing.T) {
	e := NewSimulatedExecutor(0.6, decimal.NewFromFloat(0.8), 1)

	_, err := e.Execute(context.Background(), models.NewOrder("A", models.DirectionPut, decimal.Zero, time.Minute))
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = e.Execute(context.Background(), models.NewOrder("A", models.DirectionNone, decimal.NewFromInt(1), time.Minute))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, models.NewOrder("A", models.DirectionPut, decimal.NewFromInt(1), time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedExecutorSeeded(t *testing.T) {
	order := models.NewOrder("A", models.DirectionCall, decimal.NewFromInt(1), time.Minute)
	a := NewSimulatedExecutor(0.6, decimal.NewFromFloat(0.8), 99)
	b := NewSimulatedExecutor(0.6, decimal.NewFromFloat(0.8), 99)

	for i := 0; i < 20; i++ {
		ra, _ := a.Execute(context.Background(), order)
		rb, _ := b.Execute(context.Background(), order)
		assert.Equal(t, ra.Outcome, rb.Outcome)
	}
}

func TestSimulatedExecutorZeroSeedUsesClock(t *testing.T) {
	assert.NotZero(t, NewSimulatedExecutor(0.6, decimal.NewFromFloat(0.8), 0).seed)
	assert.EqualValues(t, 99, NewSimulatedExecutor(0.6, decimal.NewFromFloat(0.8), 99).seed)
}
