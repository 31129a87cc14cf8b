package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"verisight-backend/internal/shared/auth"
	"verisight-backend/internal/shared/telemetry"
)

type fakeSessions map[string]bool

func (f fakeSessions) SessionActive(_ context.Context, id string) (bool, error) {
	return f[id], nil
}

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.NewSigner("test-secret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return signer
}

func signToken(t *testing.T, signer *auth.Signer, userID, sessionID string) string {
	t.Helper()
	token, err := signer.Sign(auth.Claims{
		SessionID:        sessionID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return token
}

func authRouter(signer *auth.Signer, sessions SessionChecker) *gin.Engine {
	r := gin.New()
	r.Use(Auth(signer, sessions))
	r.GET("/api/analysis", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})
	return r
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t), nil))
	router.OPTIONS("/api/analysis", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/analysis", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	resp := httptest.NewRecorder()
	authRouter(newTestSigner(t), nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthAcceptsBearerAndCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := newTestSigner(t)
	sessions := fakeSessions{"sess-1": true}
	token := signToken(t, signer, "user-1", "sess-1")
	router := authRouter(signer, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "user-1" {
		t.Fatalf("bearer: expected 200 user-1, got %d %q", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/analysis", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "user-1" {
		t.Fatalf("cookie: expected 200 user-1, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	signer := newTestSigner(t)
	token := signToken(t, signer, "user-1", "sess-1")
	router := authRouter(signer, fakeSessions{"sess-1": false})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session, got %d", resp.Code)
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalAuth(newTestSigner(t), nil))
	r.POST("/api/chat", func(c *gin.Context) {
		c.String(http.StatusOK, "anon:"+UserIDFromContext(c))
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "anon:" {
		t.Fatalf("expected anonymous pass-through, got %d %q", resp.Code, resp.Body.String())
	}
}
