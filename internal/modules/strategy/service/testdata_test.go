package service

import "options_bot/internal/models"

// flat строит окно из n свечей с close=price и узкими тенями.
func flat(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = bar(int64(i+1)*60, price)
	}
	return out
}

func bar(ts int64, close float64) models.Candle {
	return models.Candle{
		Open:      close,
		High:      close + 0.001,
		Low:       close - 0.001,
		Close:     close,
		Volume:    100,
		Timestamp: ts,
	}
}

func hl(high, low float64) models.Candle {
	mid := (high + low) / 2
	return models.Candle{Open: mid, Close: mid, High: high, Low: low}
}

// trend: 25 свечей по 1.0, последние 5 close идут на step за свечу.
func trend(step float64) []models.Candle {
	w := flat(25, 1.0)
	for i := 20; i < 25; i++ {
		w[i] = bar(w[i].Timestamp, 1.0+step*float64(i-19))
	}
	return w
}
