package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func staticToken(tok string) usecase.TokenSource {
	return func(ctx context.Context, attempt int) (string, error) { return tok, nil }
}

func studentUpsert() domain.UpsertInput {
	return domain.UpsertInput{
		Email: "a@b.com",
		Profile: domain.StudentOf(domain.StudentProfile{
			AcademicStatus: domain.AcademicUndergraduate,
			FieldOfStudy:   "CS",
		}),
	}
}

func TestProfilePersister(t *testing.T) {
	in := studentUpsert()
	ok := domain.UpsertResult{UserID: "user-1", Role: domain.RoleStudent}

	t.Run("Should retry Unauthorized three times with linear backoff", func(t *testing.T) {
		store := new(MockProfileStore)
		clk := newFakeClock()
		store.On("UpsertUser", mock.Anything, "tok", in).Return(domain.UpsertResult{}, domain.ErrUnauthorized)

		p := usecase.NewProfilePersister(store, clk, 3, 300*time.Millisecond, nil)
		_, err := p.Persist(context.Background(), staticToken("tok"), in)

		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		store.AssertNumberOfCalls(t, "UpsertUser", 4)
		assert.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond, 900 * time.Millisecond}, clk.Sleeps())
	})

	t.Run("Should succeed once the token propagates", func(t *testing.T) {
		store := new(MockProfileStore)
		clk := newFakeClock()
		store.On("UpsertUser", mock.Anything, "tok", in).Return(domain.UpsertResult{}, domain.ErrUnauthorized).Once()
		store.On("UpsertUser", mock.Anything, "tok", in).Return(ok, nil)

		p := usecase.NewProfilePersister(store, clk, 3, 300*time.Millisecond, nil)
		res, err := p.Persist(context.Background(), staticToken("tok"), in)

		require.NoError(t, err)
		assert.Equal(t, ok, res)
		store.AssertNumberOfCalls(t, "UpsertUser", 2)
	})

	t.Run("Should surface any other error on first occurrence", func(t *testing.T) {
		store := new(MockProfileStore)
		clk := newFakeClock()
		boom := errors.New("constraint violated")
		store.On("UpsertUser", mock.Anything, "tok", in).Return(domain.UpsertResult{}, boom)

		p := usecase.NewProfilePersister(store, clk, 3, 300*time.Millisecond, nil)
		_, err := p.Persist(context.Background(), staticToken("tok"), in)

		assert.ErrorIs(t, err, boom)
		store.AssertNumberOfCalls(t, "UpsertUser", 1)
		assert.Empty(t, clk.Sleeps())
	})

	t.Run("Should ask the token source again on each retry", func(t *testing.T) {
		store := new(MockProfileStore)
		store.On("UpsertUser", mock.Anything, "stale", in).Return(domain.UpsertResult{}, domain.ErrUnauthorized)
		store.On("UpsertUser", mock.Anything, "fresh", in).Return(ok, nil)

		var attempts []int
		tokens := func(ctx context.Context, attempt int) (string, error) {
			attempts = append(attempts, attempt)
			if attempt == 0 {
				return "stale", nil
			}
			return "fresh", nil
		}

		p := usecase.NewProfilePersister(store, newFakeClock(), 3, 300*time.Millisecond, nil)
		_, err := p.Persist(context.Background(), tokens, in)

		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, attempts)
	})
}
