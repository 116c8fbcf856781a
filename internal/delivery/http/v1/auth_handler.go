package v1

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"internify-backend/internal/delivery/http/middleware"
	"internify-backend/internal/delivery/http/response"
	"internify-backend/internal/domain"
	"internify-backend/internal/usecase"
	"internify-backend/pkg/apperror"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC        domain.AuthUsecase
	cvUC          domain.CVUsecase
	uploads       *security.UploadLimiter
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, authUC domain.AuthUsecase, cvUC domain.CVUsecase, uploads *security.UploadLimiter, sessionTTL time.Duration, secureCookies bool) {
	handler := &AuthHandler{
		authUC:        authUC,
		cvUC:          cvUC,
		uploads:       uploads,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}

	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/sign-in", handler.SignIn)
		publicAuth.POST("/sign-up", handler.SignUp)
		publicAuth.POST("/sign-up/verify", handler.VerifySignUp)
		publicAuth.POST("/sign-out", middleware.CSRFMiddleware(), handler.SignOut)
		publicAuth.POST("/cv", handler.UploadCV)
	}

	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

// SignIn godoc
// @Summary      Sign in
// @Description  Signs in with email and password, then checks that the stored role matches the tab. A mismatch signs the session out again and returns a redirect carrying the actual role.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        role    query     string                true  "Tab the user signed in on"  Enums(student, employer)
// @Param        signin  body      domain.SignInRequest  true  "Credentials"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req domain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	req.Role = roleFrom(c, req.Role)

	res := h.authUC.SignIn(c.Request.Context(), req)
	h.render(c, res, "Signed in successfully")
}

// SignUp godoc
// @Summary      Sign up
// @Description  Creates the identity account and persists the role profile. Returns 202 with a pendingId when the email must be verified first.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        role    query     string                true  "Account role"  Enums(student, employer)
// @Param        signup  body      domain.SignUpRequest  true  "Account and role profile"
// @Success      200  {object}  response.Response
// @Success      202  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	req.Role = roleFrom(c, req.Role)

	res := h.authUC.SignUp(c.Request.Context(), req)
	h.render(c, res, "Account created")
}

// VerifySignUp godoc
// @Summary      Verify sign-up code
// @Description  Completes a sign-up that needed email verification, then persists the role profile.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        verify  body      domain.VerifySignUpRequest  true  "Original sign-up payload plus pendingId and code"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/sign-up/verify [post]
func (h *AuthHandler) VerifySignUp(c *gin.Context) {
	var req domain.VerifySignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	req.Role = roleFrom(c, req.Role)

	res := h.authUC.VerifySignUp(c.Request.Context(), req)
	h.render(c, res, "Account verified")
}

type SignOutRequest struct {
	Redirect string `json:"redirect"`
}

// SignOut godoc
// @Summary      Sign out
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID  header    string          false  "Session id (alternative to the session cookie)"
// @Param        signout       body      SignOutRequest  false  "Where the client goes next"
// @Success      200  {object}  response.Response
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req SignOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	if req.Redirect == "" {
		req.Redirect = usecase.HomePath
	}

	if sid := middleware.SessionID(c); sid != "" {
		if err := h.authUC.SignOut(c.Request.Context(), sid, req.Redirect); err != nil {
			c.Error(err)
			return
		}
	}

	h.clearSession(c)
	response.Success(c, http.StatusOK, "Signed out", gin.H{"redirect": req.Redirect})
}

// Me godoc
// @Summary      Current user
// @Description  Returns the user and the single profile matching its role, resolved from the database authorization token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.CurrentUser}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	token := c.GetString(string(domain.KeyAuthToken))

	user, err := h.authUC.CurrentUser(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.Error(apperror.NotFound(domain.MsgNoProfile))
		case errors.Is(err, domain.ErrUnauthorized):
			c.Error(apperror.Unauthorized("Invalid or expired token"))
		default:
			c.Error(err)
		}
		return
	}
	response.Success(c, http.StatusOK, "User details", user)
}

// UploadCV godoc
// @Summary      Upload CV
// @Description  Stores a PDF, DOC or DOCX (max 5 MB) and returns the reference to send with the student sign-up.
// @Tags         auth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "CV file"
// @Success      201  {object}  response.Response{data=domain.StoredFile}
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /auth/cv [post]
func (h *AuthHandler) UploadCV(c *gin.Context) {
	if h.uploads != nil {
		ok, wait, err := h.uploads.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Log.Warn("upload limiter unavailable", "error", err)
			c.Error(apperror.New(http.StatusServiceUnavailable, "Uploads are temporarily unavailable. Please try again.", err))
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.Error(apperror.TooManyRequests("Too many uploads. Please try again later."))
			return
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, security.MaxCVSize+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.BadRequest("A CV file is required"))
		return
	}
	if fh.Size > security.MaxCVSize {
		c.Error(apperror.BadRequest("file is larger than 5 MB"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.Error(apperror.BadRequest("Could not read the uploaded file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, security.MaxCVSize+1))
	if err != nil {
		c.Error(apperror.BadRequest("Could not read the uploaded file"))
		return
	}

	file, err := h.cvUC.Upload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "CV uploaded", file)
}

func (h *AuthHandler) render(c *gin.Context, res domain.FlowResult, successMessage string) {
	switch res.Status {
	case domain.FlowSuccess:
		h.setSession(c, res.SessionID)
		response.Success(c, http.StatusOK, successMessage, res)
	case domain.FlowNeedsVerification:
		response.Success(c, http.StatusAccepted, res.Message, res)
	default:
		if res.SignedOut {
			h.clearSession(c)
		}
		if res.Kind == domain.FailureRateLimited {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
		}
		response.Error(c, statusFor(res), res.Message, res)
	}
}

func statusFor(res domain.FlowResult) int {
	switch {
	case res.Kind == domain.FailureRateLimited:
		return http.StatusTooManyRequests
	case res.Kind == domain.FailureInvalidCredentials, res.Kind == domain.FailureInvalidCode:
		return http.StatusUnauthorized
	case res.Kind == domain.FailureTransient:
		return http.StatusBadGateway
	case res.Redirect != nil:
		return http.StatusForbidden
	case res.SignedOut:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (h *AuthHandler) setSession(c *gin.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, sessionID, int(h.sessionTTL.Seconds()), "/", "", h.secureCookies, true)
	middleware.IssueCSRFCookie(c, h.secureCookies)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(middleware.CSRFTokenCookieName, "", -1, "/", "", h.secureCookies, false)
}

// roleFrom resolves the tab: body first, then ?role=, defaulting to student.
func roleFrom(c *gin.Context, bodyRole domain.Role) domain.Role {
	if bodyRole != "" {
		return domain.ParseRole(string(bodyRole))
	}
	return domain.ParseRole(c.Query("role"))
}
