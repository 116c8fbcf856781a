package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const submissionKeyPrefix = "submit:"

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another request is left alone.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// SubmissionGuard is a per-key in-flight lock (SET NX with a TTL). The TTL
// bounds how long a crashed request can block its key.
type SubmissionGuard struct {
	client *goredis.Client
	ttl    time.Duration

	mu   sync.Mutex
	held map[string]time.Time
}

func NewSubmissionGuard(client *goredis.Client, ttl time.Duration) *SubmissionGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmissionGuard{client: client, ttl: ttl, held: make(map[string]time.Time)}
}

func (g *SubmissionGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if g.client == nil {
		return g.acquireInMemory(key)
	}

	fullKey := submissionKeyPrefix + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, fullKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submission lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSubmissionInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := g.client.Eval(releaseCtx, releaseScript, []string{fullKey}, token).Err(); err != nil {
				logger.Log.Warn("failed to release submission lock", "key", key, "error", err)
			}
		})
	}, nil
}

func (g *SubmissionGuard) acquireInMemory(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if until, ok := g.held[key]; ok && now.Before(until) {
		return nil, domain.ErrSubmissionInFlight
	}
	until := now.Add(g.ttl)
	g.held[key] = until

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if held, ok := g.held[key]; ok && held.Equal(until) {
				delete(g.held, key)
			}
		})
	}, nil
}
