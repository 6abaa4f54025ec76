// Package cache holds the shared request counters of the rate limiter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/steams-social/steams-api/logger"
)

const counterKeyPrefix = "ratelimit:"

// Redis is a client to an external server, or to an embedded one when no
// address is configured.
type Redis struct {
	Client    *redis.Client
	miniRedis *miniredis.Miniredis
}

// OpenRedis connects to addr. An empty addr starts an embedded server.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded Redis: %w", err)
		}
		logger.Info("Embedded Redis started on", mr.Addr())
		return &Redis{
			Client:    redis.NewClient(&redis.Options{Addr: mr.Addr()}),
			miniRedis: mr,
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logger.Info("Connected to external Redis at", addr)
	return &Redis{Client: client}, nil
}

// Embedded reports whether the client talks to the in-process server.
func (r *Redis) Embedded() bool {
	return r.miniRedis != nil
}

func (r *Redis) Close() error {
	err := r.Client.Close()
	if r.miniRedis != nil {
		r.miniRedis.Close()
	}
	return err
}

var _ httprate.LimitCounter = (*RedisCounter)(nil)

// RedisCounter keeps one counter per client key and fixed window, so several
// server instances share one budget. Each counter expires once it can no
// longer be the previous window.
type RedisCounter struct {
	client  redis.Cmdable
	window  time.Duration
	timeout time.Duration
}

func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client, timeout: 2 * time.Second}
}

// Config is called by the limiter with its limit and window length.
func (c *RedisCounter) Config(_ int, windowLength time.Duration) {
	c.window = windowLength
}

func (c *RedisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *RedisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	if c.window <= 0 {
		return errors.New("redis counter used before Config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := counterKey(key, currentWindow)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, k, int64(amount))
		pipe.Expire(ctx, k, 2*c.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment %s: %w", k, err)
	}
	return nil
}

func (c *RedisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	values, err := c.client.MGet(ctx, counterKey(key, currentWindow), counterKey(key, previousWindow)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read counters of %s: %w", key, err)
	}
	counts := make([]int, 2)
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("counter of %s is not a number: %w", key, err)
		}
		counts[i] = n
	}
	return counts[0], counts[1], nil
}

func counterKey(key string, window time.Time) string {
	return counterKeyPrefix + key + ":" + strconv.FormatInt(window.Unix(), 10)
}
