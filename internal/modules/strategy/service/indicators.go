package service

import "options_bot/internal/models"

// Periods: периоды индикаторов.
type Periods struct {
	Fast int
	Slow int
	RSI  int
}

func DefaultPeriods() Periods { return Periods{Fast: 5, Slow: 20, RSI: 7} }

// Lookback: сколько свечей нужно, чтобы все индикаторы были определены.
func (p Periods) Lookback() int {
	n := p.Slow
	if p.Fast > n {
		n = p.Fast
	}
	if p.RSI+1 > n {
		n = p.RSI + 1
	}
	return n
}

// Calculator считает индикаторы по окну свечей. Без состояния.
type Calculator struct {
	p Periods
}

func NewCalculator(p Periods) *Calculator {
	d := DefaultPeriods()
	if p.Fast <= 0 {
		p.Fast = d.Fast
	}
	if p.Slow <= 0 {
		p.Slow = d.Slow
	}
	if p.RSI <= 0 {
		p.RSI = d.RSI
	}
	return &Calculator{p: p}
}

func (c *Calculator) Periods() Periods { return c.p }

func (c *Calculator) Compute(window []models.Candle) models.Snapshot {
	return models.Snapshot{
		FastMA: sma(window, c.p.Fast),
		SlowMA: sma(window, c.p.Slow),
		RSI:    rsi(window, c.p.RSI),
	}
}

func sma(window []models.Candle, period int) models.Value {
	if period <= 0 || len(window) < period {
		return models.Value{}
	}
	sum := 0.0
	for _, c := range window[len(window)-period:] {
		sum += c.Close
	}
	return models.Defined(sum / float64(period))
}

// rsi: простые средние приростов/потерь за period последних дельт close.
func rsi(window []models.Candle, period int) models.Value {
	if period <= 0 || len(window) < period+1 {
		return models.Value{}
	}
	tail := window[len(window)-period-1:]

	gain, loss := 0.0, 0.0
	for i := 1; i < len(tail); i++ {
		change := tail[i].Close - tail[i-1].Close
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	switch {
	case avgGain == 0 && avgLoss == 0:
		// флэт: ни роста, ни падения
		return models.Defined(50)
	case avgLoss == 0:
		return models.Defined(100)
	case avgGain == 0:
		return models.Defined(0)
	}
	rs := avgGain / avgLoss
	return models.Defined(100 - 100/(1+rs))
}
