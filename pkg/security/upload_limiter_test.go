package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadLimiter_InMemory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewUploadLimiter(nil, 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, wait, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	t.Run("other keys are independent", func(t *testing.T) {
		ok, _, err := l.Allow(ctx, "5.6.7.8")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("window slides", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)
		ok, _, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestUploadLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewUploadLimiter(client, 1, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, wait, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, wait)

	t.Run("fails closed when redis is unreachable", func(t *testing.T) {
		mr.Close()
		ok, _, err := l.Allow(ctx, "9.9.9.9")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
