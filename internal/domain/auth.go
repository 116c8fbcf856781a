package domain

import "context"

type Credentials struct {
	Email    string
	Password string
}

type SignUpCredentials struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthStatus string

const (
	// AuthComplete means the account is usable and SessionID is set.
	AuthComplete AuthStatus = "complete"
	// AuthNeedsVerification means a one-time code was emailed; PendingID
	// identifies the sign-up awaiting that code.
	AuthNeedsVerification AuthStatus = "needs_verification"
)

type AuthAttempt struct {
	Status    AuthStatus
	SessionID string
	PendingID string
}

// IdentityService is the external identity provider. Failures before a
// session exists are reported as *AuthError.
type IdentityService interface {
	CreateAccount(ctx context.Context, creds SignUpCredentials) (AuthAttempt, error)
	VerifyCode(ctx context.Context, pendingID, code string) (AuthAttempt, error)
	SignIn(ctx context.Context, creds Credentials) (AuthAttempt, error)
	ActivateSession(ctx context.Context, sessionID string) error
	SignOut(ctx context.Context, sessionID, redirectTarget string) error
	// AuthorizationToken returns "" with a nil error while the token for the
	// audience has not been issued yet.
	AuthorizationToken(ctx context.Context, sessionID, audience string) (string, error)
}

// SessionStore keeps activated identity sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type Session struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Active       bool   `json:"active"`
}

// SubmissionGuard serializes submissions for one identity so two persist
// calls for the same account never race.
type SubmissionGuard interface {
	// Acquire returns ErrSubmissionInFlight when a submission is running.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// AuthUsecase is the orchestrator surface used by the delivery layer.
type AuthUsecase interface {
	SignIn(ctx context.Context, req SignInRequest) FlowResult
	SignUp(ctx context.Context, req SignUpRequest) FlowResult
	VerifySignUp(ctx context.Context, req VerifySignUpRequest) FlowResult
	SignOut(ctx context.Context, sessionID, redirectTarget string) error
	CurrentUser(ctx context.Context, token string) (*CurrentUser, error)
}

type CVUsecase interface {
	Upload(ctx context.Context, fileName string, data []byte) (StoredFile, error)
}
