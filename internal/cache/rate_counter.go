package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ratelimit:"

// RateCounter is a fixed-window hit counter kept in Redis.
type RateCounter struct {
	client *redisv9.Client
	window time.Duration
}

func NewRateCounter(client *redisv9.Client, window time.Duration) *RateCounter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateCounter{
		client: client,
		window: window,
	}
}

// Hit increments the counter for key and returns the new count together with
// the time left in the current window.
func (c *RateCounter) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	redisKey := c.rateKey(key)

	count, err := c.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr rate counter failed: %w", err)
	}

	ttl, err := c.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis read rate counter ttl failed: %w", err)
	}
	// ttl < 0: the key exists without an expiry.
	if count == 1 || ttl < 0 {
		if err := c.client.PExpire(ctx, redisKey, c.window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire rate counter failed: %w", err)
		}
		ttl = c.window
	}
	return count, ttl, nil
}

func (c *RateCounter) Window() time.Duration {
	return c.window
}

func (c *RateCounter) rateKey(key string) string {
	return rateKeyPrefix + key
}
