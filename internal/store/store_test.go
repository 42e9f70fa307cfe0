package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlaWak/heartpi/internal/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestRedisKV_GetSetExpire(t *testing.T) {
	mr, c := setupTestRedis(t)
	kv := NewRedisKV(c)
	ctx := context.Background()

	_, err := kv.Get(ctx, "heartpi:latest:alice")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "heartpi:latest:alice", `{"score":12}`, time.Minute))
	v, err := kv.Get(ctx, "heartpi:latest:alice")
	require.NoError(t, err)
	assert.Equal(t, `{"score":12}`, v)
	assert.Equal(t, time.Minute, mr.TTL("heartpi:latest:alice"))

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "heartpi:latest:alice")
	assert.ErrorIs(t, err, ErrMiss)
	assert.False(t, mr.Exists("heartpi:latest:alice"))
}

func TestRedisKV_ConnectionError(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisKV(c).Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestStreamPublisher_PublishJSON(t *testing.T) {
	mr, c := setupTestRedis(t)
	p := NewStreamPublisher(c, "heartpi:assessments", 100)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	id, err := p.PublishJSON(context.Background(), map[string]any{"username": "bob", "score": 25})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := mr.Stream("heartpi:assessments")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	fields := map[string]string{}
	for i := 0; i+1 < len(entries[0].Values); i += 2 {
		fields[entries[0].Values[i]] = entries[0].Values[i+1]
	}
	assert.Equal(t, "1700000000", fields["timestamp"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(fields["data"]), &payload))
	assert.Equal(t, "bob", payload["username"])
	assert.Equal(t, float64(25), payload["score"])
}

func TestStreamValue(t *testing.T) {
	cases := map[string]any{
		"abc":       "abc",
		"42":        42,
		"7":         int64(7),
		"72.5":      72.5,
		"true":      true,
		"bytes":     []byte("bytes"),
		`{"a":1}`:   map[string]int{"a": 1},
	}
	for want, in := range cases {
		got, err := streamValue(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()

	c, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	c.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), &config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
