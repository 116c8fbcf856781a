package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/clock"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/metrics"
	"internify-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const (
	SignInPath = "/login"
	HomePath   = "/"

	signOutTimeout = 10 * time.Second
	lockSlack      = 5 * time.Second
)

// Flows is the orchestration surface consumed by the form layer.
type Flows interface {
	SignIn(ctx context.Context, req domain.SignInRequest) domain.FlowResult
	SignUp(ctx context.Context, req domain.SignUpRequest) domain.FlowResult
	VerifySignUp(ctx context.Context, req domain.VerifySignUpRequest) domain.FlowResult
}

type AuthDeps struct {
	Identity domain.IdentityService
	Store    domain.ProfileStore
	Guard    domain.SubmissionGuard // optional
	Clock    clock.Clock
	Validate *validator.Validate
	Metrics  metrics.Recorder

	// TokenTemplate names the identity-service JWT template whose tokens the
	// application database accepts.
	TokenTemplate       string
	PollInterval        time.Duration
	SignInTokenAttempts int
	SignUpTokenBudget   time.Duration
	PersistRetries      int
	PersistBackoff      time.Duration
}

// AuthUsecase orchestrates sign-in and sign-up: credentials first, then
// session activation, then token readiness, then the role guard or the
// profile persister.
type AuthUsecase struct {
	identity domain.IdentityService
	store    domain.ProfileStore
	guard    domain.SubmissionGuard
	validate *validator.Validate
	metrics  metrics.Recorder

	authenticator *CredentialAuthenticator
	waiter        *TokenWaiter
	persister     *ProfilePersister
	roleGuard     *RoleGuard

	template     string
	signUpBudget time.Duration
}

// withDefaults fills unset timings. PersistRetries of zero means a single
// attempt; only a negative count falls back to the default.
func (d AuthDeps) withDefaults() AuthDeps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Validate == nil {
		d.Validate = validation.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.PollInterval <= 0 {
		d.PollInterval = DefaultPollInterval
	}
	if d.SignInTokenAttempts < 1 {
		d.SignInTokenAttempts = DefaultSignInTokenAttempts
	}
	if d.SignUpTokenBudget <= 0 {
		d.SignUpTokenBudget = 5 * time.Second
	}
	if d.PersistRetries < 0 {
		d.PersistRetries = DefaultPersistRetries
	}
	if d.PersistBackoff <= 0 {
		d.PersistBackoff = DefaultPersistBackoff
	}
	return d
}

// SubmissionLockTTL is how long a submission lock must live to outlast the
// slowest sign-in or sign-up deps allows when every identity or database
// round trip takes the full callTimeout.
func SubmissionLockTTL(deps AuthDeps, callTimeout time.Duration) time.Duration {
	d := deps.withDefaults()

	// authenticate, activate, one call per token poll, role lookup
	polls := time.Duration(d.SignInTokenAttempts)
	signIn := (3+polls)*callTimeout + (polls-1)*d.PollInterval

	// create or verify, activate, bounded token wait, then per persist
	// attempt an upsert, and per retry a token refresh plus backoff*n
	retries := time.Duration(d.PersistRetries)
	backoff := d.PersistBackoff * retries * (retries + 1) / 2
	signUp := 2*callTimeout + d.SignUpTokenBudget + (2*retries+1)*callTimeout + backoff

	return max(signIn, signUp) + signOutTimeout + lockSlack
}

func NewAuthUsecase(deps AuthDeps) *AuthUsecase {
	deps = deps.withDefaults()

	waiter := NewTokenWaiter(deps.Identity, deps.Clock, deps.PollInterval, deps.TokenTemplate, deps.Metrics)
	return &AuthUsecase{
		identity:      deps.Identity,
		store:         deps.Store,
		guard:         deps.Guard,
		validate:      deps.Validate,
		metrics:       deps.Metrics,
		authenticator: NewCredentialAuthenticator(deps.Identity, deps.Metrics),
		waiter:        waiter,
		persister:     NewProfilePersister(deps.Store, deps.Clock, deps.PersistRetries, deps.PersistBackoff, deps.Metrics),
		roleGuard:     NewRoleGuard(waiter, deps.Store, deps.SignInTokenAttempts, deps.Metrics),
		template:      deps.TokenTemplate,
		signUpBudget:  deps.SignUpTokenBudget,
	}
}

func (u *AuthUsecase) SignIn(ctx context.Context, req domain.SignInRequest) domain.FlowResult {
	req.Role = domain.ParseRole(string(req.Role))
	if err := u.validate.Struct(req); err != nil {
		return validationFailure(err)
	}

	release, err := u.acquire(ctx, req.Email)
	if err != nil {
		return submissionFailure(err)
	}
	defer release()

	attempt, err := u.authenticator.SignIn(ctx, domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		// Nothing is activated yet, so there is nothing to sign out of.
		return authFailure(err)
	}

	return u.guardSession(ctx, attempt.SessionID, req.Role)
}

func (u *AuthUsecase) SignUp(ctx context.Context, req domain.SignUpRequest) domain.FlowResult {
	input, res, ok := u.prepareSignUp(req)
	if !ok {
		return res
	}

	release, err := u.acquire(ctx, req.Account.Email)
	if err != nil {
		return submissionFailure(err)
	}
	defer release()

	attempt, err := u.authenticator.SignUp(ctx, domain.SignUpCredentials{
		Email:     req.Account.Email,
		Password:  req.Account.Password,
		FirstName: req.Account.FirstName,
		LastName:  req.Account.LastName,
	})
	if err != nil {
		return authFailure(err)
	}

	if attempt.Status == domain.AuthNeedsVerification {
		return domain.FlowResult{
			Status:    domain.FlowNeedsVerification,
			Message:   domain.MsgVerificationSent,
			Role:      req.Role,
			PendingID: attempt.PendingID,
		}
	}

	return u.completeSignUp(ctx, attempt.SessionID, input)
}

func (u *AuthUsecase) VerifySignUp(ctx context.Context, req domain.VerifySignUpRequest) domain.FlowResult {
	input, res, ok := u.prepareSignUp(req.SignUpRequest)
	if !ok {
		return res
	}
	if err := u.validate.StructPartial(req, "PendingID", "Code"); err != nil {
		return validationFailure(err)
	}

	release, err := u.acquire(ctx, req.Account.Email)
	if err != nil {
		return submissionFailure(err)
	}
	defer release()

	attempt, err := u.authenticator.Verify(ctx, req.PendingID, req.Code)
	if err != nil {
		return authFailure(err)
	}

	return u.completeSignUp(ctx, attempt.SessionID, input)
}

// SignOut ends a session on user request.
func (u *AuthUsecase) SignOut(ctx context.Context, sessionID, redirectTarget string) error {
	return u.identity.SignOut(ctx, sessionID, redirectTarget)
}

// CurrentUser resolves the caller's User and profile from a database token.
func (u *AuthUsecase) CurrentUser(ctx context.Context, token string) (*domain.CurrentUser, error) {
	rec, err := u.store.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.View(), nil
}

func (u *AuthUsecase) prepareSignUp(req domain.SignUpRequest) (domain.UpsertInput, domain.FlowResult, bool) {
	if !req.Role.IsValid() {
		return domain.UpsertInput{}, domain.Failed("Choose whether you are signing up as a student or an employer."), false
	}
	if err := u.validate.Struct(req.Account); err != nil {
		return domain.UpsertInput{}, validationFailure(err), false
	}

	var err error
	switch req.Role {
	case domain.RoleStudent:
		if req.Student != nil {
			err = u.validate.Struct(req.Student)
		}
	case domain.RoleEmployer:
		if req.Employer != nil {
			err = u.validate.Struct(req.Employer)
		}
	}
	if err != nil {
		return domain.UpsertInput{}, validationFailure(err), false
	}

	input, err := req.UpsertInput()
	if err != nil {
		return domain.UpsertInput{}, domain.Failed(profileRequiredMessage(req.Role)), false
	}
	return input, domain.FlowResult{}, true
}

// guardSession activates a sign-in session and reconciles its stored role.
// Every failure from here on signs the session out again.
func (u *AuthUsecase) guardSession(ctx context.Context, sessionID string, requested domain.Role) domain.FlowResult {
	if err := u.identity.ActivateSession(ctx, sessionID); err != nil {
		logger.Log.Error("session activation failed", "error", err)
		return u.abort(ctx, sessionID, "activation_failed", domain.MsgGeneric)
	}

	decision, err := u.roleGuard.Check(ctx, sessionID, requested)
	if err != nil {
		logger.Log.Error("role lookup failed", "role", requested, "error", err)
		return u.abort(ctx, sessionID, "role_lookup_failed", u.postActivationMessage(err))
	}

	switch decision.Outcome {
	case GuardNoProfile:
		return u.redirectSignedOut(ctx, sessionID, "no_profile", domain.Redirect{
			Path:  SignInPath,
			Role:  requested,
			Error: domain.MsgNoProfile,
		})
	case GuardRoleMismatch:
		return u.redirectSignedOut(ctx, sessionID, "role_mismatch", domain.Redirect{
			Path:  SignInPath,
			Role:  decision.Actual,
			Error: domain.MsgRoleMismatch(decision.Actual),
		})
	}

	return domain.FlowResult{
		Status:    domain.FlowSuccess,
		Role:      decision.Actual,
		SessionID: sessionID,
		UserID:    decision.Record.User.ID,
		Redirect:  &domain.Redirect{Path: HomePath},
	}
}

func (u *AuthUsecase) completeSignUp(ctx context.Context, sessionID string, input domain.UpsertInput) domain.FlowResult {
	if err := u.identity.ActivateSession(ctx, sessionID); err != nil {
		logger.Log.Error("session activation failed", "error", err)
		return u.abort(ctx, sessionID, "activation_failed", domain.MsgGeneric)
	}

	token, err := u.waiter.WaitWithin(ctx, sessionID, u.signUpBudget)
	if err != nil {
		return u.abort(ctx, sessionID, "token_unavailable", u.postActivationMessage(err))
	}

	// Retries ask for a fresh token and keep the last good one otherwise.
	tokens := func(ctx context.Context, attempt int) (string, error) {
		if attempt == 0 {
			return token, nil
		}
		fresh, err := u.identity.AuthorizationToken(ctx, sessionID, u.template)
		if err == nil && fresh != "" {
			token = fresh
		}
		return token, nil
	}

	res, err := u.persister.Persist(ctx, tokens, input)
	if err != nil {
		logger.Log.Error("profile persistence failed", "role", input.Role(), "error", err)
		return u.abort(ctx, sessionID, "persist_failed", u.postActivationMessage(err))
	}

	logger.Log.Info("sign-up completed", "user_id", res.UserID, "role", res.Role)
	return domain.FlowResult{
		Status:    domain.FlowSuccess,
		Role:      res.Role,
		SessionID: sessionID,
		UserID:    res.UserID,
		Redirect:  &domain.Redirect{Path: HomePath},
	}
}

func (u *AuthUsecase) redirectSignedOut(ctx context.Context, sessionID, reason string, redirect domain.Redirect) domain.FlowResult {
	target := redirect.URL()
	return domain.FlowResult{
		Status:    domain.FlowError,
		Message:   redirect.Error,
		Role:      redirect.Role,
		Redirect:  &redirect,
		SignedOut: u.forceSignOut(ctx, sessionID, reason, target),
	}
}

func (u *AuthUsecase) abort(ctx context.Context, sessionID, reason, message string) domain.FlowResult {
	return domain.FlowResult{
		Status:    domain.FlowError,
		Message:   message,
		SignedOut: u.forceSignOut(ctx, sessionID, reason, SignInPath),
	}
}

// forceSignOut completes even when the caller's context is already done.
func (u *AuthUsecase) forceSignOut(ctx context.Context, sessionID, reason, redirectTarget string) bool {
	soCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutTimeout)
	defer cancel()

	u.metrics.RecordForcedSignOut(reason)
	if err := u.identity.SignOut(soCtx, sessionID, redirectTarget); err != nil {
		logger.Log.Error("forced sign-out failed", "reason", reason, "error", err)
		return false
	}
	logger.Log.Info("forced sign-out", "reason", reason, "redirect", redirectTarget)
	return true
}

func (u *AuthUsecase) postActivationMessage(err error) string {
	var locked *domain.RoleLockedError
	switch {
	case errors.Is(err, domain.ErrTokenUnavailable):
		return domain.MsgTokenUnavailable(u.template)
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.MsgPersistUnauthorized
	case errors.As(err, &locked):
		return domain.MsgRoleLocked(locked.Stored)
	case errors.Is(err, domain.ErrMissingEmail):
		return "No email address is attached to this account."
	default:
		return domain.MsgGeneric
	}
}

func (u *AuthUsecase) acquire(ctx context.Context, email string) (func(), error) {
	if u.guard == nil {
		return func() {}, nil
	}
	return u.guard.Acquire(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func authFailure(err error) domain.FlowResult {
	authErr := classifyAuthError(err)
	res := domain.FlowResult{Status: domain.FlowError, Kind: authErr.Kind}

	switch authErr.Kind {
	case domain.FailureInvalidCredentials:
		res.Message = authErr.Message
		if res.Message == "" {
			res.Message = domain.MsgInvalidCredentials
		}
	case domain.FailureInvalidCode:
		res.Message = authErr.Message
		if res.Message == "" {
			res.Message = domain.MsgInvalidCode
		}
	case domain.FailureRateLimited:
		n := domain.CountdownSeconds(authErr.RetryAfterSeconds)
		res.RetryAfterSeconds = n
		res.Message = domain.MsgRateLimited(n)
	default:
		res.Message = domain.MsgGeneric
	}
	return res
}

func validationFailure(err error) domain.FlowResult {
	return domain.Failed(strings.Join(validation.FormatValidationErrors(err), "; "))
}

func submissionFailure(err error) domain.FlowResult {
	if errors.Is(err, domain.ErrSubmissionInFlight) {
		return domain.Failed("A request for this account is already in progress. Please wait.")
	}
	logger.Log.Error("submission guard failed", "error", err)
	return domain.Failed(domain.MsgGeneric)
}

func profileRequiredMessage(role domain.Role) string {
	if role == domain.RoleEmployer {
		return "Employer profile data is required."
	}
	return "Student profile data is required."
}
