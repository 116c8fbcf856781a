package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized means the application database did not honor the
	// authorization token, usually because it has not propagated yet.
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenUnavailable   = errors.New("authorization token unavailable")
	ErrProfileRequired    = errors.New("profile data for the selected role is required")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrMissingEmail       = errors.New("no email was provided by the identity service")
	ErrSubmissionInFlight = errors.New("a request for this account is already in progress")
	ErrFormClosed         = errors.New("form is closed")
)

// RoleLockedError is returned when a persist would change an existing role
// under RoleImmutable.
type RoleLockedError struct {
	Stored    Role
	Requested Role
}

func (e *RoleLockedError) Error() string {
	return fmt.Sprintf("account is already registered as %s, cannot switch to %s", e.Stored, e.Requested)
}

// FailureKind classifies Credential Authenticator failures.
type FailureKind string

const (
	FailureInvalidCredentials FailureKind = "invalid_credentials"
	FailureInvalidCode        FailureKind = "invalid_code"
	FailureRateLimited        FailureKind = "rate_limited"
	FailureTransient          FailureKind = "transient_service_error"
)

// AuthError is a failure reported by the identity service, before any
// session is activated.
type AuthError struct {
	Kind              FailureKind
	RetryAfterSeconds float64
	Message           string
	Err               error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RetryAfter is the countdown length: max(1, ceil(retryAfterSeconds)) seconds.
func (e *AuthError) RetryAfter() time.Duration {
	return time.Duration(CountdownSeconds(e.RetryAfterSeconds)) * time.Second
}

func CountdownSeconds(retryAfter float64) int {
	n := int(math.Ceil(retryAfter))
	if n < 1 {
		return 1
	}
	return n
}

// User-facing messages.
const (
	MsgInvalidCredentials = "Wrong password or account not found."
	MsgInvalidCode        = "The verification code is incorrect or has expired."
	MsgGeneric            = "Something went wrong. Please try again."
	MsgNoProfile          = "Missing profile role. Please complete registration first."
	MsgVerificationSent   = "We sent a verification code to your email."
)

const MsgPersistUnauthorized = "The database rejected your session token. Check that the identity service and database share the same JWT issuer and application ID."

func MsgRateLimited(seconds int) string {
	return fmt.Sprintf("Too many attempts. Please try again in %d seconds.", seconds)
}

func MsgTokenUnavailable(template string) string {
	return fmt.Sprintf("Could not get a database token for your session. Check that the identity service JWT template %q exists and matches the database auth configuration.", template)
}

func MsgRoleMismatch(actual Role) string {
	return fmt.Sprintf("This account is registered as %s %s. Please sign in on the %s tab.", article(actual), actual, actual)
}

func MsgRoleLocked(stored Role) string {
	return fmt.Sprintf("This account is already registered as %s %s.", article(stored), stored)
}

func article(r Role) string {
	if r == RoleEmployer {
		return "an"
	}
	return "a"
}
