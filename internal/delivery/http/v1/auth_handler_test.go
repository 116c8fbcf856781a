package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"internify-backend/config"
	"internify-backend/internal/delivery/http/middleware"
	v1 "internify-backend/internal/delivery/http/v1"
	"internify-backend/internal/domain"
	"internify-backend/internal/usecase"
	"internify-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthUsecase struct {
	mock.Mock
}

func (m *MockAuthUsecase) SignIn(ctx context.Context, req domain.SignInRequest) domain.FlowResult {
	return m.Called(ctx, req).Get(0).(domain.FlowResult)
}

func (m *MockAuthUsecase) SignUp(ctx context.Context, req domain.SignUpRequest) domain.FlowResult {
	return m.Called(ctx, req).Get(0).(domain.FlowResult)
}

func (m *MockAuthUsecase) VerifySignUp(ctx context.Context, req domain.VerifySignUpRequest) domain.FlowResult {
	return m.Called(ctx, req).Get(0).(domain.FlowResult)
}

func (m *MockAuthUsecase) SignOut(ctx context.Context, sessionID, redirectTarget string) error {
	return m.Called(ctx, sessionID, redirectTarget).Error(0)
}

func (m *MockAuthUsecase) CurrentUser(ctx context.Context, token string) (*domain.CurrentUser, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CurrentUser), args.Error(1)
}

type MockCVUsecase struct {
	mock.Mock
}

func (m *MockCVUsecase) Upload(ctx context.Context, fileName string, data []byte) (domain.StoredFile, error) {
	args := m.Called(ctx, fileName, data)
	return args.Get(0).(domain.StoredFile), args.Error(1)
}

type healthStub struct {
	ok bool
}

func (h healthStub) Check(context.Context) (map[string]string, bool) {
	if h.ok {
		return map[string]string{"status": "ok"}, true
	}
	return map[string]string{"status": "degraded", "database": "down"}, false
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func newTestRouter(authUC *MockAuthUsecase, cvUC *MockCVUsecase, health usecase.HealthUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return v1.NewRouter(v1.RouterDeps{
		AuthUC:   authUC,
		CVUC:     cvUC,
		HealthUC: health,
		Config: &config.Config{
			FrontendURL:              "http://localhost:3000",
			SessionTTL:               time.Hour,
			RateLimitWindowSeconds:   60,
			RateLimitLoginThreshold:  100,
			RateLimitGlobalThreshold: 1000,
		},
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_SignIn(t *testing.T) {
	creds := map[string]string{"email": "ada@example.com", "password": "s3cret-pass"}

	t.Run("success sets the session and csrf cookies", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignIn", mock.Anything, domain.SignInRequest{Role: domain.RoleEmployer, Email: "ada@example.com", Password: "s3cret-pass"}).
			Return(domain.FlowResult{Status: domain.FlowSuccess, Role: domain.RoleEmployer, SessionID: "sess_1", UserID: "u1"})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in?role=employer", creds)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
		session := findCookie(w, middleware.SessionCookieName)
		require.NotNil(t, session)
		assert.Equal(t, "sess_1", session.Value)
		assert.True(t, session.HttpOnly)
		assert.NotNil(t, findCookie(w, middleware.CSRFTokenCookieName))
		authUC.AssertExpectations(t)
	})

	t.Run("each request goes straight to the usecase", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignIn", mock.Anything, mock.Anything).
			Return(domain.FlowResult{Status: domain.FlowError, Kind: domain.FailureInvalidCredentials, Message: domain.MsgInvalidCredentials})

		for i := 0; i < 2; i++ {
			w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in", creds)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, domain.MsgInvalidCredentials, env.Message)
		}
		authUC.AssertNumberOfCalls(t, "SignIn", 2)
	})

	t.Run("missing role falls back to the student tab", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignIn", mock.Anything, mock.MatchedBy(func(req domain.SignInRequest) bool {
			return req.Role == domain.RoleStudent
		})).Return(domain.FlowResult{Status: domain.FlowSuccess, SessionID: "sess_1"})

		w, _ := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in", creds)

		assert.Equal(t, http.StatusOK, w.Code)
		authUC.AssertExpectations(t)
	})

	t.Run("rate limited answers 429 with Retry-After", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignIn", mock.Anything, mock.Anything).Return(domain.FlowResult{
			Status:            domain.FlowError,
			Kind:              domain.FailureRateLimited,
			RetryAfterSeconds: 3,
			Message:           domain.MsgRateLimited(3),
		})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in", creds)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "3", w.Header().Get("Retry-After"))
		assert.Equal(t, domain.MsgRateLimited(3), env.Message)
		assert.Nil(t, findCookie(w, middleware.SessionCookieName))
	})

	t.Run("invalid credentials answer 401", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignIn", mock.Anything, mock.Anything).Return(domain.FlowResult{
			Status:  domain.FlowError,
			Kind:    domain.FailureInvalidCredentials,
			Message: domain.MsgInvalidCredentials,
		})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in", creds)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, domain.MsgInvalidCredentials, env.Message)
	})

	t.Run("role mismatch answers 403 with the redirect and clears the session", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		redirect := domain.Redirect{Path: usecase.SignInPath, Role: domain.RoleEmployer, Error: domain.MsgRoleMismatch(domain.RoleEmployer)}
		authUC.On("SignIn", mock.Anything, mock.Anything).Return(domain.FlowResult{
			Status:    domain.FlowError,
			Message:   redirect.Error,
			Role:      domain.RoleEmployer,
			Redirect:  &redirect,
			SignedOut: true,
		})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-in?role=student", creds)

		assert.Equal(t, http.StatusForbidden, w.Code)
		var res domain.FlowResult
		require.NoError(t, json.Unmarshal(env.Error, &res))
		require.NotNil(t, res.Redirect)
		assert.Equal(t, domain.RoleEmployer, res.Redirect.Role)
		cleared := findCookie(w, middleware.SessionCookieName)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
	})

	t.Run("malformed body is rejected before the orchestrator runs", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/sign-in", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		authUC.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_SignUp(t *testing.T) {
	body := map[string]interface{}{
		"account": map[string]string{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"password":  "s3cret-pass",
		},
		"student": map[string]string{
			"academicStatus": "graduate",
			"fieldOfStudy":   "Mathematics",
		},
	}

	t.Run("pending verification answers 202 with the pending id", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignUp", mock.Anything, mock.MatchedBy(func(req domain.SignUpRequest) bool {
			return req.Role == domain.RoleStudent && req.Student != nil && req.Account.Email == "ada@example.com"
		})).Return(domain.FlowResult{Status: domain.FlowNeedsVerification, PendingID: "ada@example.com", Message: domain.MsgVerificationSent})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-up?role=student", body)

		assert.Equal(t, http.StatusAccepted, w.Code)
		var res domain.FlowResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "ada@example.com", res.PendingID)
		assert.Nil(t, findCookie(w, middleware.SessionCookieName))
	})

	t.Run("post-activation failure answers 500 and clears the session", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignUp", mock.Anything, mock.Anything).Return(domain.FlowResult{
			Status:    domain.FlowError,
			Message:   domain.MsgPersistUnauthorized,
			SignedOut: true,
		})

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-up", body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, domain.MsgPersistUnauthorized, env.Message)
	})

	t.Run("verification completes the sign-up", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("VerifySignUp", mock.Anything, mock.MatchedBy(func(req domain.VerifySignUpRequest) bool {
			return req.PendingID == "ada@example.com" && req.Code == "123456"
		})).Return(domain.FlowResult{Status: domain.FlowSuccess, SessionID: "sess_2", Role: domain.RoleStudent})

		verify := map[string]interface{}{
			"account":   body["account"],
			"student":   body["student"],
			"pendingId": "ada@example.com",
			"code":      "123456",
		}
		w, _ := doJSON(t, r, http.MethodPost, "/v1/auth/sign-up/verify?role=student", verify)

		assert.Equal(t, http.StatusOK, w.Code)
		session := findCookie(w, middleware.SessionCookieName)
		require.NotNil(t, session)
		assert.Equal(t, "sess_2", session.Value)
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	t.Run("header session skips the csrf check", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignOut", mock.Anything, "sess_1", usecase.HomePath).Return(nil)

		w, _ := doJSON(t, r, http.MethodPost, "/v1/auth/sign-out", nil, func(req *http.Request) {
			req.Header.Set(middleware.SessionHeaderName, "sess_1")
		})

		assert.Equal(t, http.StatusOK, w.Code)
		authUC.AssertExpectations(t)
	})

	t.Run("cookie session without csrf token is forbidden", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)

		w, _ := doJSON(t, r, http.MethodPost, "/v1/auth/sign-out", nil, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sess_1"})
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		authUC.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cookie session with matching csrf token signs out", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("SignOut", mock.Anything, "sess_1", "/jobs").Return(nil)

		w, env := doJSON(t, r, http.MethodPost, "/v1/auth/sign-out", map[string]string{"redirect": "/jobs"}, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sess_1"})
			req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "tok"})
			req.Header.Set(middleware.CSRFTokenHeaderName, "tok")
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"redirect":"/jobs"}`, string(env.Data))
		authUC.AssertExpectations(t)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("missing token is rejected", func(t *testing.T) {
		r := newTestRouter(new(MockAuthUsecase), new(MockCVUsecase), nil)

		w, _ := doJSON(t, r, http.MethodGet, "/v1/auth/me", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns the current user", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("CurrentUser", mock.Anything, "db-token").Return(&domain.CurrentUser{
			User: &domain.User{ID: "u1", Email: "ada@example.com", Role: domain.RoleStudent},
		}, nil)

		w, env := doJSON(t, r, http.MethodGet, "/v1/auth/me", nil, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer db-token")
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var user domain.CurrentUser
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, "u1", user.User.ID)
	})

	t.Run("no user record answers 404", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("CurrentUser", mock.Anything, "db-token").Return(nil, domain.ErrNotFound)

		w, env := doJSON(t, r, http.MethodGet, "/v1/auth/me", nil, func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: "db-token"})
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domain.MsgNoProfile, env.Message)
	})

	t.Run("rejected token answers 401", func(t *testing.T) {
		authUC := new(MockAuthUsecase)
		r := newTestRouter(authUC, new(MockCVUsecase), nil)
		authUC.On("CurrentUser", mock.Anything, "db-token").Return(nil, domain.ErrUnauthorized)

		w, _ := doJSON(t, r, http.MethodGet, "/v1/auth/me", nil, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer db-token")
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_UploadCV(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%fake cv\n")

	multipartBody := func(t *testing.T) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "cv.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	t.Run("stores the file and returns its reference", func(t *testing.T) {
		cvUC := new(MockCVUsecase)
		r := newTestRouter(new(MockAuthUsecase), cvUC, nil)
		cvUC.On("Upload", mock.Anything, "cv.pdf", pdf).Return(domain.StoredFile{StorageID: "cv/abc.pdf", FileName: "cv.pdf"}, nil)

		body, contentType := multipartBody(t)
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/cv", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "cv/abc.pdf")
		cvUC.AssertExpectations(t)
	})

	t.Run("missing file is a bad request", func(t *testing.T) {
		cvUC := new(MockCVUsecase)
		r := newTestRouter(new(MockAuthUsecase), cvUC, nil)

		w, _ := doJSON(t, r, http.MethodPost, "/v1/auth/cv", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		cvUC.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_UploadCV_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cvUC := new(MockCVUsecase)
	r := v1.NewRouter(v1.RouterDeps{
		AuthUC:        new(MockAuthUsecase),
		CVUC:          cvUC,
		UploadLimiter: security.NewUploadLimiter(nil, 1, time.Minute),
		Config: &config.Config{
			RateLimitWindowSeconds:   60,
			RateLimitLoginThreshold:  100,
			RateLimitGlobalThreshold: 1000,
		},
	})
	cvUC.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(domain.StoredFile{StorageID: "cv/1.pdf"}, nil).Once()

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "cv.pdf")
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF-1.4\n"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/cv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, upload().Code)
	w := upload()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	cvUC.AssertNumberOfCalls(t, "Upload", 1)
}

func TestRouter_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		r := newTestRouter(new(MockAuthUsecase), new(MockCVUsecase), healthStub{ok: true})

		w, _ := doJSON(t, r, http.MethodGet, "/v1/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("degraded answers 503", func(t *testing.T) {
		r := newTestRouter(new(MockAuthUsecase), new(MockCVUsecase), healthStub{ok: false})

		w, env := doJSON(t, r, http.MethodGet, "/v1/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"degraded","database":"down"}`, string(env.Error))
	})
}
