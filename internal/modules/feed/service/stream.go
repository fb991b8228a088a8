package service

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"options_bot/internal/models"
)

// Stream: один WebSocket на все активы, подписка на candle<tf>.
// Закрытые свечи копятся в буфере, Fetch отдаёт хвост буфера.
type Stream struct {
	url       string
	channel   string
	assets    []string
	maxBuffer int
	log       *zap.Logger

	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	connected atomic.Bool

	mu      sync.RWMutex
	buffers map[string][]models.Candle
}

type frame struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	// [ts(ms), o, h, l, c, vol, confirm]
	Data [][]string `json:"data"`
}

func NewStream(url string, tf time.Duration, assets []string, maxBuffer int, log *zap.Logger) *Stream {
	if maxBuffer <= 0 {
		maxBuffer = 100
	}
	return &Stream{
		url:            url,
		channel:        "candle" + barName(tf),
		assets:         append([]string(nil), assets...),
		maxBuffer:      maxBuffer,
		log:            log,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectDelay: time.Second,
		buffers:        make(map[string][]models.Candle, len(assets)),
	}
}

// Start держит соединение до отмены ctx, переподключаясь при обрывах.
func (s *Stream) Start(ctx context.Context) {
	go func() {
		for {
			if err := s.session(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("ws session ended", zap.String("channel", s.channel), zap.Error(err))
			}
			s.connected.Store(false)

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}()
}

func (s *Stream) session(ctx context.Context) error {
	s.log.Info("ws connect", zap.String("url", s.url), zap.String("channel", s.channel), zap.Int("assets", len(s.assets)))
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()

	// ReadMessage блокируется, поэтому закрываем сокет по отмене ctx
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	args := make([]map[string]string, 0, len(s.assets))
	for _, a := range s.assets {
		args = append(args, map[string]string{"channel": s.channel, "instId": a})
	}
	sub, err := sonic.Marshal(map[string]any{"op": "subscribe", "args": args})
	if err != nil {
		return errors.Wrap(err, "marshal subscribe")
	}
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	s.connected.Store(true)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		s.handle(msg)
	}
}

func (s *Stream) handle(msg []byte) {
	var f frame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return
	}
	if f.Arg.Channel != s.channel || len(f.Data) == 0 {
		return
	}
	for _, row := range f.Data {
		c, ok := parseRow(row)
		if !ok {
			continue
		}
		s.push(f.Arg.InstID, c)
	}
}

// parseRow принимает только закрытые свечи (confirm == "1" в последнем поле).
func parseRow(row []string) (models.Candle, bool) {
	if len(row) < 5 || row[len(row)-1] != "1" {
		return models.Candle{}, false
	}
	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false
	}
	open, err1 := parseFloat(row[1])
	high, err2 := parseFloat(row[2])
	low, err3 := parseFloat(row[3])
	closep, err4 := parseFloat(row[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closep <= 0 {
		return models.Candle{}, false
	}
	var vol int64
	if len(row) >= 7 {
		if v, err := parseFloat(row[5]); err == nil && v > 0 {
			vol = int64(v)
		}
	}
	return models.Candle{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closep,
		Volume:    vol,
		Timestamp: tsMs / 1000,
	}, true
}

func (s *Stream) push(asset string, c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.buffers[asset]
	if n := len(buf); n > 0 && buf[n-1].Timestamp >= c.Timestamp {
		return
	}
	buf = append(buf, c)
	if len(buf) > s.maxBuffer {
		buf = append([]models.Candle(nil), buf[len(buf)-s.maxBuffer:]...)
	}
	s.buffers[asset] = buf
}

func (s *Stream) Fetch(ctx context.Context, asset string, count int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.buffers[asset]
	if len(buf) == 0 {
		return nil, ErrNoData
	}
	from := len(buf) - count
	if from < 0 || count <= 0 {
		from = 0
	}
	return append([]models.Candle(nil), buf[from:]...), nil
}

func (s *Stream) Connected() bool { return s.connected.Load() }

func (s *Stream) Name() string { return "stream" }
