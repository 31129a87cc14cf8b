package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc)
	api := r.Group("/api")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.Auth(svc.Signer, svc))
	h.RegisterRoutes(protected)
	return r
}

func send(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, r http.Handler, username string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	if rec := send(r, http.MethodPost, "/api/register", "", map[string]string{"username": username, "password": "pw"}); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	rec := send(r, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var body struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return body.SessionToken, rec
}

func TestRegisterEndpoint(t *testing.T) {
	r := newTestRouter(t, newTestService(t))

	rec := send(r, http.MethodPost, "/api/register", "", map[string]string{"username": "ada", "password": "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var msg map[string]string
	json.Unmarshal(rec.Body.Bytes(), &msg)
	if msg["message"] != "User registered successfully" {
		t.Fatalf("unexpected body %v", msg)
	}

	if rec := send(r, http.MethodPost, "/api/register", "", map[string]string{"username": "ada", "password": "pw"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", rec.Code)
	}
	if rec := send(r, http.MethodPost, "/api/register", "", map[string]string{"username": "bob"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
	rec = send(r, http.MethodPost, "/api/register", "", map[string]string{"username": "eve", "password": "pw", "email": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	r := newTestRouter(t, newTestService(t))
	token, rec := registerAndLogin(t, r, "ada")
	if token == "" {
		t.Fatalf("expected session token in body")
	}

	var user map[string]any
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user["username"] != "ada" || user["profileImageUrl"] == "" {
		t.Fatalf("unexpected user body %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected %s cookie", middleware.SessionCookie)
	}
	if cookie.Value != token || !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if cookie.MaxAge != 3600 {
		t.Fatalf("expected max age to follow session ttl, got %d", cookie.MaxAge)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	r := newTestRouter(t, newTestService(t))
	registerAndLogin(t, r, "ada")

	rec := send(r, http.MethodPost, "/api/login", "", map[string]string{"username": "ada", "password": "bad"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "Invalid credentials" {
		t.Fatalf("unexpected message %q", body["message"])
	}
}

func TestCurrentUserAndLogout(t *testing.T) {
	r := newTestRouter(t, newTestService(t))
	token, _ := registerAndLogin(t, r, "ada")

	if rec := send(r, http.MethodGet, "/api/auth/user", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec := send(r, http.MethodGet, "/api/auth/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec := send(r, http.MethodGet, "/api/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", rec.Code)
	}
	if rec := send(r, http.MethodGet, "/api/auth/user", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token must be rejected, got %d", rec.Code)
	}
	if rec := send(r, http.MethodPost, "/api/logout", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("logout without a session must succeed, got %d", rec.Code)
	}
}

func TestAdminSummaryRequiresAdmin(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(t, svc)
	userToken, _ := registerAndLogin(t, r, "ada")
	adminToken, _ := registerAndLogin(t, r, "root")

	claims, _ := svc.Signer.Verify(adminToken)
	svc.admins[claims.UserID()] = struct{}{}

	if rec := send(r, http.MethodGet, "/api/admin/summary", userToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec := send(r, http.MethodGet, "/api/admin/summary", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summary.Users) != 2 || len(summary.Activities) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
