package service

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Checkpoint хранит последний принятый timestamp по активу между рестартами.
type Checkpoint interface {
	Load(ctx context.Context, asset string) (int64, bool, error)
	Save(ctx context.Context, asset string, ts int64) error
}

type NopCheckpoint struct{}

func (NopCheckpoint) Load(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (NopCheckpoint) Save(context.Context, string, int64) error        { return nil }

type RedisCheckpoint struct {
	client *redis.Client
	prefix string
}

func NewRedisCheckpoint(client *redis.Client) *RedisCheckpoint {
	return &RedisCheckpoint{client: client, prefix: "options_bot:last_ts:"}
}

func (c *RedisCheckpoint) Load(ctx context.Context, asset string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+asset).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "redis get %s", asset)
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "parse checkpoint %s=%q", asset, raw)
	}
	return ts, true, nil
}

func (c *RedisCheckpoint) Save(ctx context.Context, asset string, ts int64) error {
	if err := c.client.Set(ctx, c.prefix+asset, ts, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", asset)
	}
	return nil
}

// RestoreAll подтягивает чекпоинты всех активов в стор.
func RestoreAll(ctx context.Context, s *Store, cp Checkpoint) error {
	for _, a := range s.Assets() {
		ts, ok, err := cp.Load(ctx, a)
		if err != nil {
			return err
		}
		if ok {
			s.Restore(a, ts)
		}
	}
	return nil
}
