package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkpointKey = "options_bot:last_ts:EURUSD-OTC"

func TestRedisCheckpointLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		client, m := redismock.NewClientMock()
		m.ExpectGet(checkpointKey).RedisNil()

		ts, ok, err := NewRedisCheckpoint(client).Load(ctx, "EURUSD-OTC")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, ts)
		assert.NoError(t, m.ExpectationsWereMet())
	})

	t.Run("stored value", func(t *testing.T) {
		client, m := redismock.NewClientMock()
		m.ExpectGet(checkpointKey).SetVal("1700000040")

		ts, ok, err := NewRedisCheckpoint(client).Load(ctx, "EURUSD-OTC")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, 1700000040, ts)
	})

	t.Run("garbage value", func(t *testing.T) {
		client, m := redismock.NewClientMock()
		m.ExpectGet(checkpointKey).SetVal("not-a-number")

		_, ok, err := NewRedisCheckpoint(client).Load(ctx, "EURUSD-OTC")
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("redis down", func(t *testing.T) {
		client, m := redismock.NewClientMock()
		m.ExpectGet(checkpointKey).SetErr(errors.New("connection refused"))

		_, _, err := NewRedisCheckpoint(client).Load(ctx, "EURUSD-OTC")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestRedisCheckpointSave(t *testing.T) {
	client, m := redismock.NewClientMock()
	m.ExpectSet(checkpointKey, int64(120), 0).SetVal("OK")
	m.ExpectSet(checkpointKey, int64(180), 0).SetErr(errors.New("readonly"))

	cp := NewRedisCheckpoint(client)
	require.NoError(t, cp.Save(context.Background(), "EURUSD-OTC", 120))
	assert.Error(t, cp.Save(context.Background(), "EURUSD-OTC", 180))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestRestoreAllFromRedis(t *testing.T) {
	client, m := redismock.NewClientMock()
	m.ExpectGet(checkpointKey).SetVal("300")
	m.ExpectGet("options_bot:last_ts:GBPUSD-OTC").RedisNil()

	s := NewStore([]string{"EURUSD-OTC", "GBPUSD-OTC"}, 4)
	require.NoError(t, RestoreAll(context.Background(), s, NewRedisCheckpoint(client)))

	last, _ := s.LastAccepted("EURUSD-OTC")
	assert.EqualValues(t, 300, last)
	assert.False(t, s.Append("EURUSD-OTC", candleAt(300, 1)))
	last, _ = s.LastAccepted("GBPUSD-OTC")
	assert.Zero(t, last)
}
