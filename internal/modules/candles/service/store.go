package service

import (
	"sync"

	"options_bot/internal/models"
)

type timeline struct {
	mu           sync.Mutex
	candles      *ring
	lastAccepted int64
}

// Store держит последние N свечей по каждому активу. Набор активов
// фиксируется при создании, таймлайны живут до конца процесса.
type Store struct {
	capacity  int
	assets    []string
	timelines map[string]*timeline
}

func NewStore(assets []string, capacity int) *Store {
	s := &Store{
		capacity:  capacity,
		assets:    append([]string(nil), assets...),
		timelines: make(map[string]*timeline, len(assets)),
	}
	for _, a := range assets {
		s.timelines[a] = &timeline{candles: newRing(capacity)}
	}
	return s
}

// Append принимает свечу, если её timestamp строго больше последнего
// принятого. Дубликаты и битые свечи молча отбрасываются.
func (s *Store) Append(asset string, c models.Candle) bool {
	tl, ok := s.timelines[asset]
	if !ok {
		return false
	}
	if c.Validate() != nil {
		return false
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if c.Timestamp <= tl.lastAccepted {
		return false
	}
	tl.candles.push(c)
	tl.lastAccepted = c.Timestamp
	return true
}

// Window: последние n свечей, от старых к новым. n <= 0: всё окно.
func (s *Store) Window(asset string, n int) []models.Candle {
	tl, ok := s.timelines[asset]
	if !ok {
		return nil
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.candles.tail(n)
}

func (s *Store) Len(asset string) int {
	tl, ok := s.timelines[asset]
	if !ok {
		return 0
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.candles.size()
}

func (s *Store) LastAccepted(asset string) (int64, bool) {
	tl, ok := s.timelines[asset]
	if !ok {
		return 0, false
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.lastAccepted, true
}

// Restore поднимает lastAccepted из чекпоинта. Значение только растёт.
func (s *Store) Restore(asset string, ts int64) {
	tl, ok := s.timelines[asset]
	if !ok {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if ts > tl.lastAccepted {
		tl.lastAccepted = ts
	}
}

func (s *Store) Assets() []string { return append([]string(nil), s.assets...) }

func (s *Store) Capacity() int { return s.capacity }
