package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keydesk/keydesk/internal/service"
)

type addKeyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type verifyKeyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func (e *testEnv) addKey(t *testing.T, key, keyType string) {
	t.Helper()
	rr := e.do(t, "POST", "/add-key", toJSON(t, map[string]string{
		"key": key, "type": keyType, "admin_secret": testAdminSecret,
	}))
	assertStatus(t, rr, http.StatusOK)
}

func (e *testEnv) verify(t *testing.T, key string) verifyKeyResponse {
	t.Helper()
	rr := e.do(t, "POST", "/verify-key", toJSON(t, map[string]string{"key": key}))
	assertStatus(t, rr, http.StatusOK)
	var resp verifyKeyResponse
	decodeJSON(t, rr, &resp)
	return resp
}

func TestAddKey_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/add-key", toJSON(t, map[string]string{
		"key": "ABC123", "type": "day", "admin_secret": testAdminSecret,
	}))
	assertStatus(t, rr, http.StatusOK)

	var resp addKeyResponse
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.Message != "Key added" {
		t.Errorf("got %+v", resp)
	}
}

func TestAddKey_WrongSecret(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/add-key", toJSON(t, map[string]string{
		"key": "ABC123", "type": "day", "admin_secret": "nope",
	}))
	assertError(t, rr, http.StatusForbidden, "Unauthorized")
}

func TestAddKey_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []map[string]string{
		{"key": "", "type": "day", "admin_secret": testAdminSecret},
		{"key": "k", "type": "week", "admin_secret": testAdminSecret},
		{"key": "k", "admin_secret": testAdminSecret},
	} {
		rr := env.do(t, "POST", "/add-key", toJSON(t, body))
		assertError(t, rr, http.StatusBadRequest, "Invalid key or type")
	}
}

func TestAddKey_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/add-key", strings.NewReader("{not json"))
	assertError(t, rr, http.StatusBadRequest, "Invalid request body")
}

func TestVerifyKey_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addKey(t, "ABC123", "day")

	if got := env.verify(t, "ABC123"); !got.Valid || got.Message != "Key valid" {
		t.Errorf("at T0 got %+v", got)
	}

	env.clock = env.clock.Add(25 * time.Hour)
	if got := env.verify(t, "ABC123"); got.Valid || got.Message != "Key expired" {
		t.Errorf("at T0+25h got %+v", got)
	}

	if got := env.verify(t, "nope"); got.Valid || got.Message != "Invalid key" {
		t.Errorf("unknown key got %+v", got)
	}
}

func TestVerifyKey_DuplicateAddKeepsExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.addKey(t, "dup", "hour")
	env.addKey(t, "dup", "lifetime")

	env.clock = env.clock.Add(61 * time.Minute)
	if got := env.verify(t, "dup"); got.Valid {
		t.Errorf("duplicate add must not extend the key, got %+v", got)
	}
}

func TestVerifyKey_KeyRequired(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/verify-key", toJSON(t, map[string]string{}))
	assertError(t, rr, http.StatusBadRequest, "Key required")

	rr = env.do(t, "POST", "/verify-key", strings.NewReader("garbage"))
	assertError(t, rr, http.StatusBadRequest, "Key required")
}

func TestRegistry_DatabaseError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRegistryHandler(service.NewRegistryService(brokenStore{}, testAdminSecret), logger)

	req := httptest.NewRequest("POST", "/add-key", toJSON(t, map[string]string{
		"key": "k", "type": "day", "admin_secret": testAdminSecret,
	}))
	rr := httptest.NewRecorder()
	h.AddKey(rr, req)
	assertError(t, rr, http.StatusInternalServerError, "Database error")

	req = httptest.NewRequest("POST", "/verify-key", toJSON(t, map[string]string{"key": "k"}))
	rr = httptest.NewRecorder()
	h.VerifyKey(rr, req)
	assertError(t, rr, http.StatusInternalServerError, "Database error")
}
