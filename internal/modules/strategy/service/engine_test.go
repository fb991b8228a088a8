package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"options_bot/internal/models"
)

func snap(fast, slow, osc float64) models.Snapshot {
	return models.Snapshot{FastMA: models.Defined(fast), SlowMA: models.Defined(slow), RSI: models.Defined(osc)}
}

func TestEvaluate(t *testing.T) {
	trough := models.Flags{IsTrough: true}
	peak := models.Flags{IsPeak: true}
	both := models.Flags{IsPeak: true, IsTrough: true}

	tests := []struct {
		name  string
		snap  models.Snapshot
		flags models.Flags
		want  models.Direction
	}{
		{"call", snap(1.2, 1.1, 60), trough, models.DirectionCall},
		{"call needs trough", snap(1.2, 1.1, 60), peak, models.DirectionNone},
		{"call needs rsi above midline", snap(1.2, 1.1, 50), trough, models.DirectionNone},
		{"put", snap(1.0, 1.1, 40), peak, models.DirectionPut},
		{"put needs peak", snap(1.0, 1.1, 40), trough, models.DirectionNone},
		{"put needs rsi below midline", snap(1.0, 1.1, 50), peak, models.DirectionNone},
		{"equal averages", snap(1.1, 1.1, 70), both, models.DirectionNone},
		{"call wins when both flags set", snap(1.2, 1.1, 60), both, models.DirectionCall},
		{"undefined slow", models.Snapshot{FastMA: models.Defined(2), RSI: models.Defined(90)}, both, models.DirectionNone},
		{"undefined rsi", models.Snapshot{FastMA: models.Defined(2), SlowMA: models.Defined(1)}, both, models.DirectionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.snap, tt.flags))
		})
	}
}

func TestShortHistoryAlwaysNone(t *testing.T) {
	s := NewFractalMA(DefaultPeriods())
	w := flat(19, 1.0)
	// пик и впадина одновременно на последних трёх свечах
	w[16], w[17], w[18] = hl(1.0, 0.999), hl(1.01, 0.99), hl(1.0, 0.999)

	a := s.Analyze(w)
	assert.True(t, a.Flags.IsPeak)
	assert.True(t, a.Flags.IsTrough)
	assert.Equal(t, models.DirectionNone, a.Direction)
	assert.Equal(t, "warmup", a.Reason())
}

func TestRisingCloseWithTroughIsCall(t *testing.T) {
	s := NewFractalMA(DefaultPeriods())
	w := trend(0.01)
	w[23].Low = 1.0

	a := s.Analyze(w)
	assert.Greater(t, a.Snapshot.FastMA.V, a.Snapshot.SlowMA.V)
	assert.InDelta(t, 100, a.Snapshot.RSI.V, 1e-9)
	assert.True(t, a.Flags.IsTrough)
	assert.Equal(t, models.DirectionCall, a.Direction)
}

func TestRisingCloseWithoutTroughIsNone(t *testing.T) {
	s := NewFractalMA(DefaultPeriods())
	a := s.Analyze(trend(0.01))

	assert.False(t, a.Flags.IsTrough)
	assert.Equal(t, models.DirectionNone, a.Direction)
}

func TestFallingCloseNeedsPeak(t *testing.T) {
	s := NewFractalMA(DefaultPeriods())

	w := trend(-0.01)
	a := s.Analyze(w)
	assert.Less(t, a.Snapshot.FastMA.V, a.Snapshot.SlowMA.V)
	assert.InDelta(t, 0, a.Snapshot.RSI.V, 1e-9)
	assert.Equal(t, models.DirectionNone, a.Direction)

	w[23].High = 1.1
	a = s.Analyze(w)
	assert.True(t, a.Flags.IsPeak)
	assert.Equal(t, models.DirectionPut, a.Direction)
	assert.Contains(t, a.Reason(), "peak=true")
}

func TestFractalMAName(t *testing.T) {
	s := NewFractalMA(DefaultPeriods())
	assert.Equal(t, "fractal_sma5_sma20_rsi7", s.Name())
	assert.Equal(t, 20, s.Lookback())
}
