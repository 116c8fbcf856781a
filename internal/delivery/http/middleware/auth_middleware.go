package middleware

import (
	"net/http"
	"strings"

	"internify-backend/internal/delivery/http/response"
	"internify-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "session_id"
	SessionHeaderName = "X-Session-ID"
	// TokenCookieName holds the database-facing authorization token.
	TokenCookieName = "db_token"
)

// RequireToken extracts the database authorization token from the
// Authorization header or the db_token cookie. The token itself is verified
// by the profile store on use.
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else if cookie, err := c.Cookie(TokenCookieName); err == nil {
			token = cookie
		}

		if token == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or db_token cookie required", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyAuthToken), token)
		c.Next()
	}
}

// SessionID returns the identity session from the X-Session-ID header or the
// session cookie.
func SessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeaderName); id != "" {
		return id
	}
	id, _ := c.Cookie(SessionCookieName)
	return id
}
