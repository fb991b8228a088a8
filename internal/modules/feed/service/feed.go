package service

import (
	"context"
	"errors"

	"options_bot/internal/models"
)

// ErrNoData: у фида пока нет свечей по активу.
var ErrNoData = errors.New("feed: no candles yet")

// Feed отдаёт последние count закрытых свечей актива, от старых к новым.
// Может вернуть меньше, чем просили.
type Feed interface {
	Fetch(ctx context.Context, asset string, count int) ([]models.Candle, error)
	Connected() bool
	Name() string
}
