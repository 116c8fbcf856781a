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

const DefaultPollInterval = 250 * time.Millisecond

var errBudgetSpent = errors.New("token wait budget spent")

// TokenWaiter polls the identity service until the database-facing
// authorization token for a freshly activated session exists.
type TokenWaiter struct {
	identity domain.IdentityService
	clock    clock.Clock
	interval time.Duration
	audience string
	metrics  metrics.Recorder
}

func NewTokenWaiter(identity domain.IdentityService, clk clock.Clock, interval time.Duration, audience string, rec metrics.Recorder) *TokenWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &TokenWaiter{identity: identity, clock: clk, interval: interval, audience: audience, metrics: rec}
}

// WaitAttempts polls at most attempts times.
func (w *TokenWaiter) WaitAttempts(ctx context.Context, sessionID string, attempts int) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	return w.wait(ctx, sessionID, "sign_in", func(polls int, _ time.Duration) bool {
		return polls < attempts
	})
}

// WaitWithin polls until the next poll would start at or past budget. A poll
// still in flight when the budget runs out is cancelled.
func (w *TokenWaiter) WaitWithin(ctx context.Context, sessionID string, budget time.Duration) (string, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	deadline := w.clock.AfterFunc(budget, func() { cancel(errBudgetSpent) })
	defer deadline.Stop()

	return w.wait(ctx, sessionID, "sign_up", func(_ int, elapsed time.Duration) bool {
		return elapsed+w.interval < budget
	})
}

func budgetSpent(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errBudgetSpent)
}

type pollState int

const (
	statePolling pollState = iota
	stateSleeping
	stateReady
	stateExhausted
)

func (w *TokenWaiter) wait(ctx context.Context, sessionID, path string, more func(polls int, elapsed time.Duration) bool) (string, error) {
	start := w.clock.Now()
	var (
		token   string
		polls   int
		lastErr error
	)

	state := statePolling
	for {
		switch state {
		case statePolling:
			tok, err := w.identity.AuthorizationToken(ctx, sessionID, w.audience)
			polls++
			switch {
			case err != nil:
				lastErr = err
				if budgetSpent(ctx) {
					state = stateExhausted
					break
				}
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				logger.Log.Debug("authorization token poll failed", "poll", polls, "error", err)
				state = stateSleeping
			case tok != "":
				token = tok
				state = stateReady
			default:
				state = stateSleeping
			}
			if state == stateSleeping && !more(polls, w.clock.Now().Sub(start)) {
				state = stateExhausted
			}

		case stateSleeping:
			if err := w.clock.Sleep(ctx, w.interval); err != nil {
				if budgetSpent(ctx) {
					state = stateExhausted
					continue
				}
				return "", err
			}
			state = statePolling

		case stateReady:
			w.metrics.RecordTokenWait(path, polls, true)
			return token, nil

		case stateExhausted:
			w.metrics.RecordTokenWait(path, polls, false)
			logger.Log.Warn("authorization token never became available", "path", path, "polls", polls, "audience", w.audience)
			if lastErr != nil {
				return "", fmt.Errorf("%w after %d polls: %v", domain.ErrTokenUnavailable, polls, lastErr)
			}
			return "", fmt.Errorf("%w after %d polls", domain.ErrTokenUnavailable, polls)
		}
	}
}
