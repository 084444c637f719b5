package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/store"
)

const (
	testAdminUser   = "admin"
	testAdminPass   = "supersecretpassword"
	testAdminSecret = "registry-secret"
)

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *store.Store
	auth     *service.AuthService
	registry *service.RegistryService
	keys     *service.APIKeyService
	clock    time.Time
	router   chi.Router
}

// newTestEnv wires every handler over an in-memory store on a bare chi
// router. Session-gated routes use the real RequireLogin middleware.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(context.Background(), store.Options{Driver: store.DriverSQLite})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	auth, err := service.NewAuthService(service.AuthOptions{
		AdminUser:     testAdminUser,
		AdminPass:     testAdminPass,
		SessionSecret: "test-secret-for-handler-tests",
		SessionTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	env := &testEnv{
		store: st,
		auth:  auth,
		keys:  service.NewAPIKeyService(st),
		clock: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	env.registry = service.NewRegistryService(st, testAdminSecret).WithClock(func() time.Time { return env.clock })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := NewRegistryHandler(env.registry, logger)
	dash := NewDashboardHandler(auth, env.keys, DashboardOptions{BaseURL: "http://localhost:3000", Logger: logger})
	val := NewValidateHandler(env.keys, logger)
	sys := NewSystemHandler(auth, env.keys, logger)

	r := chi.NewRouter()
	r.Post("/add-key", reg.AddKey)
	r.Post("/verify-key", reg.VerifyKey)

	r.Get("/", dash.Root)
	r.Get("/login", dash.LoginForm)
	r.Post("/login", dash.Login)
	r.Post("/logout", dash.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(auth, true))
		r.Get("/dashboard", dash.Dashboard)
		r.Post("/keys/create", dash.CreateKey)
		r.Post("/keys/revoke/{id}", dash.RevokeKey)
	})

	r.Get("/api/validate-key", val.ValidateKey)
	r.Post("/api/admin/session", sys.Login)
	r.Delete("/api/admin/session", sys.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(auth, false))
		r.Get("/api/keys", sys.ListAPIKeys)
		r.Post("/api/keys", sys.CreateAPIKey)
		r.Post("/api/keys/{id}/revoke", sys.RevokeAPIKey)
	})

	env.router = r
	return env
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// postForm submits an urlencoded form, optionally with a session cookie.
func (e *testEnv) postForm(t *testing.T, path string, form url.Values, session string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// get issues a GET with an optional session cookie.
func (e *testEnv) get(t *testing.T, path, session string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// session logs in through the service and returns a token.
func (e *testEnv) session(t *testing.T) string {
	t.Helper()
	sess, err := e.auth.Login(testAdminUser, testAdminPass)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return sess.Token
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assertStatus(t, rr, status)
	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Error != message {
		t.Errorf("error = %q, want %q", resp.Error, message)
	}
}

// brokenStore fails every call, for 500 paths.
type brokenStore struct{}

var errBroken = errors.New("database is locked")

func (brokenStore) Ping(context.Context) error { return errBroken }
func (brokenStore) InsertKeyIfAbsent(context.Context, *model.Key) (bool, error) {
	return false, errBroken
}
func (brokenStore) FindKey(context.Context, string) (*model.Key, error) { return nil, errBroken }
func (brokenStore) ListKeys(context.Context) ([]model.Key, error) { return nil, errBroken }
func (brokenStore) CreateAPIKey(context.Context, *model.APIKey) error  { return errBroken }
func (brokenStore) FindAPIKeyByHash(context.Context, string) (*model.APIKey, error) {
	return nil, errBroken
}
func (brokenStore) ListAPIKeys(context.Context) ([]model.APIKey, error) { return nil, errBroken }
func (brokenStore) SetAPIKeyActive(context.Context, int64, bool) error  { return errBroken }
