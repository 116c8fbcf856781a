package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"internify-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

const (
	CSRFTokenCookieName = "csrf_token"
	CSRFTokenHeaderName = "X-CSRF-Token"
	CSRFTokenLength     = 32
	CSRFTokenExpiry     = 24 * time.Hour
)

func generateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IssueCSRFCookie sets a fresh double-submit token; call it whenever a
// session cookie is handed out.
func IssueCSRFCookie(c *gin.Context, secure bool) {
	token, err := generateCSRFToken()
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	// Readable by JS so the frontend can echo it in X-CSRF-Token
	c.SetCookie(CSRFTokenCookieName, token, int(CSRFTokenExpiry.Seconds()), "/", "", secure, false)
}

// CSRFMiddleware enforces the double-submit cookie pattern on requests that
// authenticate with the session cookie. Requests carrying the session id in
// the X-Session-ID header are not cookie-driven and pass through.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if c.GetHeader(SessionHeaderName) != "" {
			c.Next()
			return
		}
		if _, err := c.Cookie(SessionCookieName); err != nil {
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFTokenCookieName)
		header := c.GetHeader(CSRFTokenHeaderName)
		if err != nil || cookie == "" || header == "" {
			response.Error(c, http.StatusForbidden, "Missing CSRF token", nil)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			response.Error(c, http.StatusForbidden, "Invalid CSRF token", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
