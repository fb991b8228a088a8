package service

import "options_bot/internal/models"

// Detect смотрит на три последние свечи окна (c0, c1, c2).
// Равные значения пивотом не считаются.
func Detect(window []models.Candle) models.Flags {
	if len(window) < 3 {
		return models.Flags{}
	}
	c0, c1, c2 := window[len(window)-3], window[len(window)-2], window[len(window)-1]
	return models.Flags{
		IsPeak:   c1.High > c0.High && c1.High > c2.High,
		IsTrough: c1.Low < c0.Low && c1.Low < c2.Low,
	}
}
