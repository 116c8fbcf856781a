package usecase

import (
	"context"
	"errors"
	"fmt"

	"internify-backend/internal/domain"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/metrics"
)

// CredentialAuthenticator talks to the identity service and normalises every
// failure into a *domain.AuthError. It never touches a session.
type CredentialAuthenticator struct {
	identity domain.IdentityService
	metrics  metrics.Recorder
}

func NewCredentialAuthenticator(identity domain.IdentityService, rec metrics.Recorder) *CredentialAuthenticator {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CredentialAuthenticator{identity: identity, metrics: rec}
}

func (a *CredentialAuthenticator) SignIn(ctx context.Context, creds domain.Credentials) (domain.AuthAttempt, error) {
	attempt, err := a.identity.SignIn(ctx, creds)
	if err != nil {
		return domain.AuthAttempt{}, a.fail("sign_in", err)
	}
	if attempt.Status == domain.AuthNeedsVerification {
		// Password sign-in has no second step here; an unconfirmed email is a
		// credential problem the user has to fix first.
		return domain.AuthAttempt{}, a.fail("sign_in", &domain.AuthError{
			Kind:    domain.FailureInvalidCredentials,
			Message: "Email not confirmed",
		})
	}
	return a.complete("sign_in", attempt)
}

func (a *CredentialAuthenticator) SignUp(ctx context.Context, creds domain.SignUpCredentials) (domain.AuthAttempt, error) {
	attempt, err := a.identity.CreateAccount(ctx, creds)
	if err != nil {
		return domain.AuthAttempt{}, a.fail("sign_up", err)
	}
	if attempt.Status == domain.AuthNeedsVerification {
		if attempt.PendingID == "" {
			return domain.AuthAttempt{}, a.fail("sign_up", errors.New("verification required but no pending sign-up id returned"))
		}
		return attempt, nil
	}
	return a.complete("sign_up", attempt)
}

func (a *CredentialAuthenticator) Verify(ctx context.Context, pendingID, code string) (domain.AuthAttempt, error) {
	attempt, err := a.identity.VerifyCode(ctx, pendingID, code)
	if err != nil {
		return domain.AuthAttempt{}, a.fail("verify", err)
	}
	if attempt.Status != domain.AuthComplete {
		return domain.AuthAttempt{}, a.fail("verify", &domain.AuthError{Kind: domain.FailureInvalidCode, Message: domain.MsgInvalidCode})
	}
	return a.complete("verify", attempt)
}

func (a *CredentialAuthenticator) complete(op string, attempt domain.AuthAttempt) (domain.AuthAttempt, error) {
	if attempt.Status != domain.AuthComplete || attempt.SessionID == "" {
		return domain.AuthAttempt{}, a.fail(op, fmt.Errorf("identity service returned status %q without a session", attempt.Status))
	}
	return attempt, nil
}

func (a *CredentialAuthenticator) fail(op string, err error) error {
	authErr := classifyAuthError(err)
	a.metrics.RecordAuthFailure(string(authErr.Kind))
	logger.Log.Warn("identity service rejected request", "op", op, "kind", authErr.Kind, "error", err)
	return authErr
}

func classifyAuthError(err error) *domain.AuthError {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &domain.AuthError{Kind: domain.FailureTransient, Err: err}
}
