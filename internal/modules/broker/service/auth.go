package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

var ErrUnauthorized = errors.New("broker: login rejected")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type Credentials struct {
	Email    string
	Password string
}

type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (string, error)
}

// HTTPAuthenticator: один POST на login-эндпоинт, из ответа берём data.ssid.
type HTTPAuthenticator struct {
	endpoint string
	http     *http.Client
}

func NewHTTPAuthenticator(endpoint string) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *HTTPAuthenticator) Login(ctx context.Context, creds Credentials) (string, error) {
	payload, err := sonic.Marshal(map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal login")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "login request")
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrap(ErrUnauthorized, fmt.Sprintf("http %d", resp.StatusCode))
	}

	var r struct {
		Data struct {
			SSID string `json:"ssid"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(b, &r); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	if r.Data.SSID == "" {
		return "", errors.Wrap(ErrUnauthorized, "no ssid in response")
	}
	return r.Data.SSID, nil
}

type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeLive       Mode = "live"
)

// Session: итог логина на старте. Без токена работаем в режиме симуляции.
type Session struct {
	mu    sync.RWMutex
	mode  Mode
	token string
}

func NewSession() *Session { return &Session{mode: ModeSimulation} }

// Connect пробует залогиниться; любая ошибка переводит в симуляцию.
func (s *Session) Connect(ctx context.Context, a Authenticator, creds Credentials) error {
	if creds.Email == "" || creds.Password == "" {
		s.set(ModeSimulation, "")
		return errors.Wrap(ErrUnauthorized, "no credentials configured")
	}
	token, err := a.Login(ctx, creds)
	if err != nil {
		s.set(ModeSimulation, "")
		return err
	}
	s.set(ModeLive, token)
	return nil
}

func (s *Session) set(m Mode, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode, s.token = m, token
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
