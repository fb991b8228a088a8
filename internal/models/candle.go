package models

import (
	"fmt"
	"math"
	"time"
)

// Candle: OHLCV свеча одного таймфрейма. Timestamp: unix-секунды открытия.
type Candle struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"from"`
}

// Validate проверяет согласованность OHLC.
func (c Candle) Validate() error {
	if c.Volume < 0 {
		return fmt.Errorf("negative volume %d", c.Volume)
	}
	if c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("low %.5f above body", c.Low)
	}
	if c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("high %.5f below body", c.High)
	}
	return nil
}

func (c Candle) Time() time.Time { return time.Unix(c.Timestamp, 0) }

func (c Candle) String() string {
	return fmt.Sprintf("O:%.5f H:%.5f L:%.5f C:%.5f", c.Open, c.High, c.Low, c.Close)
}
