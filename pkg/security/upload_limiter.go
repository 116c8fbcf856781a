package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set scored by unix millis.
// KEYS[1] = window key
// ARGV[1] = limit, ARGV[2] = window (ms), ARGV[3] = now (ms), ARGV[4] = member
// Returns {allowed, oldest_score}
const uploadRateLimitScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

if redis.call('ZCARD', key) >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    return {0, tonumber(oldest[2])}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, now}
`

// UploadLimiter caps CV uploads per key (client IP) within a sliding window.
// Without a Redis client the window is kept in process memory.
type UploadLimiter struct {
	client *goredis.Client
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewUploadLimiter(client *goredis.Client, limit int, window time.Duration) *UploadLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &UploadLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records an upload for key. When the window is full it returns false
// and how long until the oldest upload leaves it. Redis errors fail closed.
func (l *UploadLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	if l.client == nil {
		return l.allowInMemory(key, now)
	}

	nowMs := now.UnixMilli()
	res, err := l.client.Eval(ctx, uploadRateLimitScript, []string{"ratelimit:upload:" + key},
		l.limit, l.window.Milliseconds(), nowMs, uuid.NewString()).Result()
	if err != nil {
		return false, l.window, fmt.Errorf("upload rate limit check failed: %w", err)
	}

	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return false, l.window, fmt.Errorf("unexpected result from upload rate limit script")
	}
	allowed, _ := arr[0].(int64)
	oldest, _ := arr[1].(int64)
	if allowed == 1 {
		return true, 0, nil
	}
	return false, retryAfter(time.UnixMilli(oldest).Add(l.window).Sub(now)), nil
}

func (l *UploadLimiter) allowInMemory(key string, now time.Time) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, retryAfter(kept[0].Add(l.window).Sub(now)), nil
	}
	l.hits[key] = append(kept, now)
	return true, 0, nil
}

func retryAfter(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
