package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed-window counter per key
type RateLimiter struct {
	client   *Client
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter allows requests per window for each key
func NewRateLimiter(client *Client, requests int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, requests: requests, window: window, now: time.Now}
}

// Limit returns the number of requests allowed per window
func (r *RateLimiter) Limit() int {
	return r.requests
}

// Allow counts one request for key.
// Returns (allowed, remaining, resetTime, error)
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := r.now().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)
	fullKey := rateLimitPrefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	pipe := r.client.rdb.TxPipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.ExpireAt(ctx, fullKey, windowEnd.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := incrCmd.Val()
	remaining := r.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= int64(r.requests), remaining, windowEnd, nil
}

// Reset clears the current window for key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	windowStart := r.now().Truncate(r.window)
	fullKey := rateLimitPrefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
	return r.client.rdb.Del(ctx, fullKey).Err()
}
