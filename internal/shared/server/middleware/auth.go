package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	sessionIDKey = "sessionId"

	// SessionCookie is the cookie carrying the session token for browser clients.
	SessionCookie = "session_token"
)

// SessionChecker reports whether a session is still open.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Auth rejects requests without a valid session token and stores the caller identity in context.
func Auth(signer *auth.Signer, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if !identify(c, signer, sessions) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is present and never rejects.
func OptionalAuth(signer *auth.Signer, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		identify(c, signer, sessions)
		c.Next()
	}
}

func identify(c *gin.Context, signer *auth.Signer, sessions SessionChecker) bool {
	token := tokenFromRequest(c)
	if token == "" || signer == nil {
		return false
	}
	claims, err := signer.Verify(token)
	if err != nil {
		return false
	}
	if sessions != nil {
		if claims.SessionID == "" {
			return false
		}
		active, err := sessions.SessionActive(c.Request.Context(), claims.SessionID)
		if err != nil || !active {
			return false
		}
	}
	c.Set(userIDKey, claims.UserID())
	if claims.SessionID != "" {
		c.Set(sessionIDKey, claims.SessionID)
	}
	return true
}

// TokenFromRequest returns the bearer token or session cookie value.
func TokenFromRequest(c *gin.Context) string {
	return tokenFromRequest(c)
}

func tokenFromRequest(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SessionIDFromContext fetches the session ID set by the auth middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
