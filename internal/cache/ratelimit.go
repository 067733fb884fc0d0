package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter grants at most one action per key within a cooldown window.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter returns a limiter whose keys are namespaced by prefix.
func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow reports whether the action identified by key may run now.
// The first call in a window claims it; later calls fail until the window elapses.
func (l *RateLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %q: %w", key, err)
	}
	return ok, nil
}
