package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/clock"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/metrics"
)

const (
	DefaultPersistRetries = 3
	DefaultPersistBackoff = 300 * time.Millisecond
)

// TokenSource yields the authorization token for the next persist attempt.
type TokenSource func(ctx context.Context, attempt int) (string, error)

// ProfilePersister upserts the User and its role profile, retrying only while
// the database still answers Unauthorized.
type ProfilePersister struct {
	store      domain.ProfileStore
	clock      clock.Clock
	maxRetries int
	backoff    time.Duration
	metrics    metrics.Recorder
}

func NewProfilePersister(store domain.ProfileStore, clk clock.Clock, maxRetries int, backoff time.Duration, rec metrics.Recorder) *ProfilePersister {
	if maxRetries < 0 {
		maxRetries = DefaultPersistRetries
	}
	if backoff <= 0 {
		backoff = DefaultPersistBackoff
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &ProfilePersister{store: store, clock: clk, maxRetries: maxRetries, backoff: backoff, metrics: rec}
}

// Persist runs one initial attempt plus up to maxRetries retries, sleeping
// backoff*n before retry n. Any error other than domain.ErrUnauthorized is
// returned as-is from the attempt that produced it.
func (p *ProfilePersister) Persist(ctx context.Context, tokens TokenSource, in domain.UpsertInput) (domain.UpsertResult, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.clock.Sleep(ctx, p.backoff*time.Duration(attempt)); err != nil {
				return domain.UpsertResult{}, err
			}
		}

		token, err := tokens(ctx, attempt)
		if err != nil {
			return domain.UpsertResult{}, err
		}

		res, err := p.store.UpsertUser(ctx, token, in)
		if err == nil {
			p.metrics.RecordPersistAttempt("ok")
			return res, nil
		}
		if !errors.Is(err, domain.ErrUnauthorized) {
			p.metrics.RecordPersistAttempt("error")
			return domain.UpsertResult{}, err
		}

		p.metrics.RecordPersistAttempt("unauthorized")
		logger.Log.Info("database has not honored the token yet", "attempt", attempt+1, "role", in.Role())
		lastErr = err
	}
	return domain.UpsertResult{}, fmt.Errorf("persist gave up after %d retries: %w", p.maxRetries, lastErr)
}
