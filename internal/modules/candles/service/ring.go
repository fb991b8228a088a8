package service

import "options_bot/internal/models"

// ring: кольцевой буфер свечей фиксированной ёмкости, старые вытесняются.
type ring struct {
	buf   []models.Candle
	len   int
	start int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]models.Candle, capacity)}
}

func (r *ring) push(c models.Candle) {
	if r.len < len(r.buf) {
		r.buf[(r.start+r.len)%len(r.buf)] = c
		r.len++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

// tail возвращает копию последних n элементов, от старых к новым.
func (r *ring) tail(n int) []models.Candle {
	if n <= 0 || n > r.len {
		n = r.len
	}
	out := make([]models.Candle, n)
	first := r.len - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+first+i)%len(r.buf)]
	}
	return out
}

func (r *ring) size() int { return r.len }
