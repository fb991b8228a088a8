package service

import (
	"fmt"

	"options_bot/internal/models"
)

// Analysis: результат одной оценки окна.
type Analysis struct {
	Snapshot  models.Snapshot
	Flags     models.Flags
	Direction models.Direction
}

func (a Analysis) Reason() string {
	if !a.Snapshot.Ready() {
		return "warmup"
	}
	return fmt.Sprintf("SMA fast=%.5f slow=%.5f RSI=%.2f peak=%v trough=%v",
		a.Snapshot.FastMA.V, a.Snapshot.SlowMA.V, a.Snapshot.RSI.V, a.Flags.IsPeak, a.Flags.IsTrough)
}

// Engine: то, что дергает Runner.
type Engine interface {
	Analyze(window []models.Candle) Analysis
	Lookback() int
	Name() string
}

// FractalMA: пересечение средних + RSI + фрактал на одном и том же окне.
type FractalMA struct {
	calc *Calculator
}

func NewFractalMA(p Periods) *FractalMA {
	return &FractalMA{calc: NewCalculator(p)}
}

func (s *FractalMA) Analyze(window []models.Candle) Analysis {
	snap := s.calc.Compute(window)
	flags := Detect(window)
	return Analysis{
		Snapshot:  snap,
		Flags:     flags,
		Direction: Evaluate(snap, flags),
	}
}

func (s *FractalMA) Lookback() int { return s.calc.Periods().Lookback() }

func (s *FractalMA) Name() string {
	p := s.calc.Periods()
	return fmt.Sprintf("fractal_sma%d_sma%d_rsi%d", p.Fast, p.Slow, p.RSI)
}
