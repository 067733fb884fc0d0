package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingAttempts = 3
	pingTimeout  = 2 * time.Second
)

// NewRedisClient connects to redisURL and pings it, retrying while the server starts up.
// The client backs token revocation and the verification resend limiter.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	var lastErr error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			log.Printf("✅ Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
			return client, nil
		}
		log.Printf("... redis ping failed (attempt %d/%d): %v", attempt, pingAttempts, lastErr)
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("ping redis: %w", lastErr)
}
