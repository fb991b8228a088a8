package service

import "options_bot/internal/models"

// RSIMidline: граница осциллятора между CALL и PUT.
const RSIMidline = 50.0

// Evaluate сводит индикаторы и фрактал в направление.
// CALL проверяется первым.
func Evaluate(s models.Snapshot, f models.Flags) models.Direction {
	if !s.Ready() {
		return models.DirectionNone
	}
	fast, slow, osc := s.FastMA.V, s.SlowMA.V, s.RSI.V

	if fast > slow && osc > RSIMidline && f.IsTrough {
		return models.DirectionCall
	}
	if fast < slow && osc < RSIMidline && f.IsPeak {
		return models.DirectionPut
	}
	return models.DirectionNone
}
