package service

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"options_bot/internal/models"
)

// зашумлённое блуждание цены, как у демо-режима
const (
	openJitter = 0.001
	bodyJitter = 0.0005
	wickJitter = 0.0003
	maxHistory = 500
)

type simSeries struct {
	rnd     *rand.Rand
	candles []models.Candle
}

// Simulated генерирует по свече на каждый таймфрейм. Одна и та же свеча
// при повторных запросах не меняется, новая появляется после закрытия бакета.
type Simulated struct {
	tf   time.Duration
	seed uint64
	now  func() time.Time

	mu     sync.Mutex
	series map[string]*simSeries
}

// NewSimulated: seed == 0 берётся от текущего времени.
func NewSimulated(tf time.Duration, seed int64, now func() time.Time) *Simulated {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now == nil {
		now = time.Now
	}
	if tf <= 0 {
		tf = time.Minute
	}
	return &Simulated{
		tf:     tf,
		seed:   uint64(seed),
		now:    now,
		series: make(map[string]*simSeries),
	}
}

func basePrice(asset string) float64 {
	switch {
	case strings.Contains(asset, "EURUSD"):
		return 1.10000
	case strings.Contains(asset, "GBPUSD"):
		return 1.25000
	default:
		return 110.000
	}
}

func (s *Simulated) get(asset string) *simSeries {
	if sr, ok := s.series[asset]; ok {
		return sr
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(asset))
	sr := &simSeries{rnd: rand.New(rand.NewPCG(s.seed, h.Sum64()))}
	s.series[asset] = sr
	return sr
}

func (s *Simulated) Fetch(ctx context.Context, asset string, count int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sr := s.get(asset)
	step := int64(s.tf / time.Second)
	// последняя закрытая свеча: предыдущий бакет
	lastClosed := bucketStart(s.now(), s.tf) - step

	next := lastClosed - int64(count-1)*step
	prev := basePrice(asset)
	if n := len(sr.candles); n > 0 {
		last := sr.candles[n-1]
		prev = last.Close
		if last.Timestamp+step > next {
			next = last.Timestamp + step
		}
	}
	for ts := next; ts <= lastClosed; ts += step {
		c := s.generate(sr.rnd, prev, ts)
		sr.candles = append(sr.candles, c)
		prev = c.Close
	}
	if len(sr.candles) > maxHistory {
		sr.candles = append([]models.Candle(nil), sr.candles[len(sr.candles)-maxHistory:]...)
	}

	from := len(sr.candles) - count
	if from < 0 {
		from = 0
	}
	return append([]models.Candle(nil), sr.candles[from:]...), nil
}

func (s *Simulated) generate(rnd *rand.Rand, anchor float64, ts int64) models.Candle {
	uniform := func(a, b float64) float64 { return a + rnd.Float64()*(b-a) }

	open := anchor + uniform(-openJitter, openJitter)
	closep := open + uniform(-bodyJitter, bodyJitter)
	high := max(open, closep) + uniform(0, wickJitter)
	low := min(open, closep) - uniform(0, wickJitter)

	c := models.Candle{
		Open:      round5(open),
		High:      round5(high),
		Low:       round5(low),
		Close:     round5(closep),
		Volume:    int64(50 + rnd.IntN(101)),
		Timestamp: ts,
	}
	// округление не должно ломать инвариант теней
	c.High = max(c.High, c.Open, c.Close)
	c.Low = min(c.Low, c.Open, c.Close)
	return c
}

func (s *Simulated) Connected() bool { return true }

func (s *Simulated) Name() string { return "simulated" }
