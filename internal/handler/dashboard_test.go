package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
)

var secretPattern = regexp.MustCompile(`[0-9a-f]{64}`)

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestRootRedirects(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get(t, "/", "")
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, "/dashboard", "")
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	rr = env.postForm(t, "/keys/create", url.Values{"name": {"x"}}, "")
	assertStatus(t, rr, http.StatusFound)

	keys, _ := env.keys.List(t.Context())
	if len(keys) != 0 {
		t.Error("unauthenticated create must not store a key")
	}
}

func TestLoginForm(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get(t, "/login", "")
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "<form") {
		t.Error("expected a login form")
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm(t, "/login", url.Values{"user": {testAdminUser}, "pass": {testAdminPass}}, "")
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}

	c := sessionCookieFrom(t, rr)
	if c == nil || c.Value == "" {
		t.Fatal("expected a session cookie")
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	rr = env.get(t, "/dashboard", c.Value)
	assertStatus(t, rr, http.StatusOK)
}

func TestLogin_Failure(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm(t, "/login", url.Values{"user": {testAdminUser}, "pass": {"wrong"}}, "")
	assertStatus(t, rr, http.StatusUnauthorized)
	if sessionCookieFrom(t, rr) != nil {
		t.Error("failed login must not set a session cookie")
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	rr := env.postForm(t, "/logout", nil, token)
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if c := sessionCookieFrom(t, rr); c == nil || c.MaxAge >= 0 {
		t.Error("expected the session cookie to be cleared")
	}

	// The old token no longer works.
	rr = env.get(t, "/dashboard", token)
	assertStatus(t, rr, http.StatusFound)
}

func TestCreateKeyShowsSecretOnce(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	rr := env.postForm(t, "/keys/create", url.Values{"name": {"Alice"}}, token)
	assertStatus(t, rr, http.StatusOK)
	secret := secretPattern.FindString(rr.Body.String())
	if secret == "" {
		t.Fatalf("expected a 64-char hex secret in:\n%s", rr.Body.String())
	}

	rr = env.do(t, "GET", "/api/validate-key", nil, "x-api-key", secret)
	assertStatus(t, rr, http.StatusOK)

	dash := env.get(t, "/dashboard", token)
	assertStatus(t, dash, http.StatusOK)
	body := dash.Body.String()
	if !strings.Contains(body, "Alice") || !strings.Contains(body, "Active") {
		t.Errorf("dashboard should list Alice as Active:\n%s", body)
	}
	if strings.Contains(body, secret) {
		t.Error("dashboard must never show the plaintext secret")
	}
}

func TestRevokeKey(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	created, err := env.keys.Create(t.Context(), "bob")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rr := env.postForm(t, "/keys/revoke/"+itoa(created.Key.ID), nil, token)
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", loc)
	}

	rr = env.do(t, "GET", "/api/validate-key", nil, "x-api-key", created.Secret)
	assertStatus(t, rr, http.StatusForbidden)

	dash := env.get(t, "/dashboard", token)
	if !strings.Contains(dash.Body.String(), "Revoked") {
		t.Error("dashboard should show the key as Revoked")
	}
}

func TestRevokeKey_NonNumericIDIsNoop(t *testing.T) {
	env := newTestEnv(t)
	token := env.session(t)

	created, err := env.keys.Create(t.Context(), "keep")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rr := env.postForm(t, "/keys/revoke/abc", nil, token)
	assertStatus(t, rr, http.StatusFound)

	rr = env.do(t, "GET", "/api/validate-key", nil, "x-api-key", created.Secret)
	assertStatus(t, rr, http.StatusOK)
}

func TestDashboard_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewDashboardHandler(env.auth, service.NewAPIKeyService(brokenStore{}), DashboardOptions{Logger: logger})

	rr := httptest.NewRecorder()
	h.Dashboard(rr, httptest.NewRequest("GET", "/dashboard", nil))
	assertStatus(t, rr, http.StatusInternalServerError)
	if strings.Contains(rr.Body.String(), errBroken.Error()) {
		t.Error("store errors must not leak to the client")
	}
}
