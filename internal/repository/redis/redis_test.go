package redis_test

import (
	"context"
	"testing"
	"time"

	"internify-backend/internal/domain"
	redisrepo "internify-backend/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)

	stores := map[string]*redisrepo.SessionStore{
		"redis":     redisrepo.NewSessionStore(client, time.Hour),
		"in-memory": redisrepo.NewSessionStore(nil, time.Hour),
	}

	for name, store := range stores {
		t.Run("Should round-trip a session ("+name+")", func(t *testing.T) {
			s := &domain.Session{ID: "sid-1", UserID: "u1", AccessToken: "at", Active: true}
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Get(ctx, "sid-1")
			require.NoError(t, err)
			assert.Equal(t, s, got)

			require.NoError(t, store.Delete(ctx, "sid-1"))
			_, err = store.Get(ctx, "sid-1")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}

	t.Run("Should expire sessions after the TTL", func(t *testing.T) {
		store := redisrepo.NewSessionStore(client, time.Minute)
		require.NoError(t, store.Save(ctx, &domain.Session{ID: "sid-2"}))

		mr.FastForward(2 * time.Minute)

		_, err := store.Get(ctx, "sid-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Should reject a session without id", func(t *testing.T) {
		assert.Error(t, stores["redis"].Save(ctx, &domain.Session{}))
	})
}

func TestSubmissionGuard(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)

	guards := map[string]*redisrepo.SubmissionGuard{
		"redis":     redisrepo.NewSubmissionGuard(client, 30*time.Second),
		"in-memory": redisrepo.NewSubmissionGuard(nil, 30*time.Second),
	}

	for name, guard := range guards {
		t.Run("Should block a second submission until release ("+name+")", func(t *testing.T) {
			release, err := guard.Acquire(ctx, "a@b.com")
			require.NoError(t, err)

			_, err = guard.Acquire(ctx, "a@b.com")
			assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

			other, err := guard.Acquire(ctx, "c@d.com")
			require.NoError(t, err)
			other()

			release()
			release() // idempotent

			again, err := guard.Acquire(ctx, "a@b.com")
			require.NoError(t, err)
			again()
		})
	}

	t.Run("Should free the key once the lock TTL passes", func(t *testing.T) {
		guard := guards["redis"]
		_, err := guard.Acquire(ctx, "stuck@b.com")
		require.NoError(t, err)

		mr.FastForward(31 * time.Second)

		release, err := guard.Acquire(ctx, "stuck@b.com")
		require.NoError(t, err)
		release()
	})

	t.Run("Should not release a lock re-acquired by someone else", func(t *testing.T) {
		guard := guards["redis"]
		stale, err := guard.Acquire(ctx, "race@b.com")
		require.NoError(t, err)

		mr.FastForward(31 * time.Second)
		fresh, err := guard.Acquire(ctx, "race@b.com")
		require.NoError(t, err)

		stale()
		_, err = guard.Acquire(ctx, "race@b.com")
		assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
		fresh()
	})
}
