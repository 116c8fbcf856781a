package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"internify-backend/internal/domain"
	"internify-backend/pkg/logger"

	"github.com/google/uuid"
)

// Config describes a GoTrue-compatible identity service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the identity service over REST. Sessions it issues are
// kept in a SessionStore and referenced by an opaque session id.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	sessions domain.SessionStore
}

func NewClient(cfg Config, sessions domain.SessionStore, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		http:     httpClient,
		sessions: sessions,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// signupResponse is either a session (auto-confirmed accounts) or the bare
// user awaiting email confirmation.
type signupResponse struct {
	tokenResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) CreateAccount(ctx context.Context, creds domain.SignUpCredentials) (domain.AuthAttempt, error) {
	body := map[string]interface{}{
		"email":    creds.Email,
		"password": creds.Password,
		"data": map[string]string{
			"first_name": creds.FirstName,
			"last_name":  creds.LastName,
		},
	}

	var out signupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out, domain.FailureInvalidCredentials); err != nil {
		return domain.AuthAttempt{}, err
	}

	if out.AccessToken == "" {
		// The verify endpoint is keyed by email.
		return domain.AuthAttempt{Status: domain.AuthNeedsVerification, PendingID: creds.Email}, nil
	}
	return c.openSession(ctx, &out.tokenResponse)
}

func (c *Client) VerifyCode(ctx context.Context, pendingID, code string) (domain.AuthAttempt, error) {
	body := map[string]string{
		"type":  "signup",
		"email": pendingID,
		"token": code,
	}

	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", body, &out, domain.FailureInvalidCode); err != nil {
		return domain.AuthAttempt{}, err
	}
	if out.AccessToken == "" {
		return domain.AuthAttempt{}, &domain.AuthError{Kind: domain.FailureTransient, Message: "verification returned no session"}
	}
	return c.openSession(ctx, &out)
}

func (c *Client) SignIn(ctx context.Context, creds domain.Credentials) (domain.AuthAttempt, error) {
	body := map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}

	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out, domain.FailureInvalidCredentials); err != nil {
		return domain.AuthAttempt{}, err
	}
	return c.openSession(ctx, &out)
}

func (c *Client) ActivateSession(ctx context.Context, sessionID string) error {
	s, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	s.Active = true
	return c.sessions.Save(ctx, s)
}

// SignOut forgets the session locally, then revokes it upstream. Once the
// local session is gone the caller is signed out, so an upstream failure is
// only logged. The redirect target is resolved by the caller.
func (c *Client) SignOut(ctx context.Context, sessionID, redirectTarget string) error {
	s, err := c.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	if s.AccessToken != "" {
		if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", s.AccessToken, nil, nil, domain.FailureTransient); err != nil {
			logger.Log.Warn("upstream logout failed", "user_id", s.UserID, "error", err)
		}
	}

	logger.Log.Info("session signed out", "user_id", s.UserID, "redirect", redirectTarget)
	return nil
}

type templateTokenResponse struct {
	JWT string `json:"jwt"`
}

// AuthorizationToken fetches the database-facing token minted from the named
// JWT template. Until the session is active or the token is issued it
// returns "".
func (c *Client) AuthorizationToken(ctx context.Context, sessionID, template string) (string, error) {
	s, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !s.Active {
		return "", nil
	}

	path := "/auth/v1/token/templates/" + url.PathEscape(template)
	req, err := c.newRequest(ctx, http.MethodPost, path, s.AccessToken, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusTooEarly:
		return "", nil
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("token template %q: status %d", template, resp.StatusCode)
	}

	var out templateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("token template %q: %w", template, err)
	}
	return out.JWT, nil
}

func (c *Client) openSession(ctx context.Context, t *tokenResponse) (domain.AuthAttempt, error) {
	s := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       t.User.ID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if err := c.sessions.Save(ctx, s); err != nil {
		return domain.AuthAttempt{}, &domain.AuthError{Kind: domain.FailureTransient, Message: "could not store session", Err: err}
	}
	return domain.AuthAttempt{Status: domain.AuthComplete, SessionID: s.ID}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, bearer string, body interface{}) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}

// do performs a call and maps failures onto *domain.AuthError. rejected is
// the kind reported for 4xx answers other than 429.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}, rejected domain.FailureKind) error {
	req, err := c.newRequest(ctx, method, path, bearer, body)
	if err != nil {
		return &domain.AuthError{Kind: domain.FailureTransient, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.AuthError{Kind: domain.FailureTransient, Message: "identity service unavailable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapError(resp, rejected)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.AuthError{Kind: domain.FailureTransient, Message: "failed to parse identity response", Err: err}
	}
	return nil
}

type errorResponse struct {
	Msg              string  `json:"msg"`
	Message          string  `json:"message"`
	ErrorDescription string  `json:"error_description"`
	ErrorCode        string  `json:"error_code"`
	RetryAfter       float64 `json:"retry_after"`
}

func (e errorResponse) text() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Message
	}
}

func mapError(resp *http.Response, rejected domain.FailureKind) *domain.AuthError {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	logger.Log.Warn("identity service rejected request",
		"status", resp.StatusCode,
		"error_code", body.ErrorCode,
		"message", body.text(),
	)

	cause := fmt.Errorf("identity service returned %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retry := body.RetryAfter
		if v, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil {
			retry = v
		}
		return &domain.AuthError{Kind: domain.FailureRateLimited, RetryAfterSeconds: retry, Message: body.text(), Err: cause}
	case resp.StatusCode >= 500:
		return &domain.AuthError{Kind: domain.FailureTransient, Message: body.text(), Err: cause}
	default:
		return &domain.AuthError{Kind: rejected, Message: body.text(), Err: cause}
	}
}
