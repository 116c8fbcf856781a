package usecase

import (
	"context"

	"internify-backend/internal/domain"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/metrics"
)

const DefaultSignInTokenAttempts = 8

type GuardOutcome string

const (
	GuardRoleMatch    GuardOutcome = "match"
	GuardNoProfile    GuardOutcome = "no_profile"
	GuardRoleMismatch GuardOutcome = "mismatch"
)

// GuardDecision is the result of reconciling the stored role with the tab
// the user signed in through.
type GuardDecision struct {
	Outcome GuardOutcome
	Actual  domain.Role
	Record  *domain.UserRecord
}

// RoleGuard looks up the stored role after a session has been activated.
type RoleGuard struct {
	waiter   *TokenWaiter
	store    domain.ProfileStore
	attempts int
	metrics  metrics.Recorder
}

func NewRoleGuard(waiter *TokenWaiter, store domain.ProfileStore, attempts int, rec metrics.Recorder) *RoleGuard {
	if attempts < 1 {
		attempts = DefaultSignInTokenAttempts
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RoleGuard{waiter: waiter, store: store, attempts: attempts, metrics: rec}
}

func (g *RoleGuard) Check(ctx context.Context, sessionID string, requested domain.Role) (GuardDecision, error) {
	token, err := g.waiter.WaitAttempts(ctx, sessionID, g.attempts)
	if err != nil {
		return GuardDecision{}, err
	}

	rec, err := g.store.CurrentUser(ctx, token)
	if err != nil {
		return GuardDecision{}, err
	}

	var d GuardDecision
	switch {
	case rec == nil:
		d = GuardDecision{Outcome: GuardNoProfile}
	case rec.User.Role != requested:
		d = GuardDecision{Outcome: GuardRoleMismatch, Actual: rec.User.Role, Record: rec}
	default:
		d = GuardDecision{Outcome: GuardRoleMatch, Actual: rec.User.Role, Record: rec}
	}

	g.metrics.RecordRoleGuard(string(d.Outcome))
	logger.Log.Info("role guard decided", "requested", requested, "actual", d.Actual, "outcome", d.Outcome)
	return d, nil
}
