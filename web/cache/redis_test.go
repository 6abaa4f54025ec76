package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCounter(t *testing.T, window time.Duration) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	counter := NewRedisCounter(client)
	counter.Config(100, window)
	return counter, mr
}

func TestRedisCounterWindows(t *testing.T) {
	window := 15 * time.Minute
	counter, _ := newRedisCounter(t, window)
	prev := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	curr := prev.Add(window)

	require.NoError(t, counter.IncrementBy("10.0.0.1", prev, 4))
	for i := 0; i < 3; i++ {
		require.NoError(t, counter.Increment("10.0.0.1", curr))
	}
	require.NoError(t, counter.Increment("10.0.0.2", curr))

	c, p, err := counter.Get("10.0.0.1", curr, prev)
	require.NoError(t, err)
	assert.Equal(t, 3, c)
	assert.Equal(t, 4, p)

	// Other clients have their own counters.
	c, p, err = counter.Get("10.0.0.2", curr, prev)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
	assert.Equal(t, 0, p)

	c, p, err = counter.Get("10.0.0.3", curr, prev)
	require.NoError(t, err)
	assert.Zero(t, c)
	assert.Zero(t, p)
}

func TestRedisCounterExpires(t *testing.T) {
	window := time.Minute
	counter, mr := newRedisCounter(t, window)
	curr := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, counter.Increment("10.0.0.1", curr))
	assert.Equal(t, 2*window, mr.TTL(counterKey("10.0.0.1", curr)))

	mr.FastForward(2*window + time.Second)
	c, _, err := counter.Get("10.0.0.1", curr, curr.Add(-window))
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestRedisCounterRejectsGarbage(t *testing.T) {
	counter, mr := newRedisCounter(t, time.Minute)
	curr := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, mr.Set(counterKey("10.0.0.1", curr), "lots"))

	_, _, err := counter.Get("10.0.0.1", curr, curr.Add(-time.Minute))
	assert.Error(t, err)
}

func TestRedisCounterUnreachable(t *testing.T) {
	counter, mr := newRedisCounter(t, time.Minute)
	mr.Close()

	assert.Error(t, counter.Increment("10.0.0.1", time.Now()))
	_, _, err := counter.Get("10.0.0.1", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestRedisCounterNeedsConfig(t *testing.T) {
	counter := NewRedisCounter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	assert.Error(t, counter.Increment("10.0.0.1", time.Now()))
}

func TestOpenRedisEmbedded(t *testing.T) {
	r, err := OpenRedis(context.Background(), "", "", 0)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Embedded())
	require.NoError(t, r.Client.Ping(context.Background()).Err())
}
