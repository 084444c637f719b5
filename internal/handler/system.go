package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
)

// SystemHandler serves the JSON admin API: session management and API key
// administration for scripts and the CLI.
type SystemHandler struct {
	auth   *service.AuthService
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(auth *service.AuthService, keys *service.APIKeyService, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{auth: auth, keys: keys, logger: logger}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type loginRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// Login authenticates the admin and returns a bearer session token.
// POST /api/admin/session
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.User == "" || req.Pass == "" {
		writeError(w, http.StatusBadRequest, "User and password are required")
		return
	}

	sess, err := h.auth.Login(req.User, req.Pass)
	if err != nil {
		h.logger.Warn("admin api login failed", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		TokenType: "bearer",
		ExpiresIn: int(h.auth.TTL().Seconds()),
	})
}

// Logout revokes the presented session token.
// DELETE /api/admin/session
func (h *SystemHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(middleware.SessionToken(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

// apiKeyResource is the JSON shape of an API key. The hash is never exposed.
func apiKeyResource(k model.APIKey) map[string]interface{} {
	return map[string]interface{}{
		"id":         k.ID,
		"name":       k.Name,
		"active":     k.Active,
		"status":     k.Status(),
		"created_at": k.CreatedAt,
	}
}

// ListAPIKeys returns every API key, newest first.
// GET /api/keys
func (h *SystemHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		h.logger.Error("list api keys failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	resources := make([]map[string]interface{}, len(keys))
	for i, k := range keys {
		resources[i] = apiKeyResource(k)
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resources,
		Meta:     &model.ResponseMeta{Count: len(resources)},
	})
}

// CreateAPIKey creates a key. The plaintext is in this response only.
// POST /api/keys
func (h *SystemHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.keys.Create(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create api key failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.logger.Info("api key created", "id", created.Key.ID, "name", created.Key.Name, "by", adminName(r))

	resp := apiKeyResource(*created.Key)
	resp["api_key"] = created.Secret
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, resp)
}

// RevokeAPIKey deactivates a key. Unknown ids succeed.
// POST /api/keys/{id}/revoke
func (h *SystemHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid key id")
		return
	}

	if err := h.keys.Revoke(r.Context(), id); err != nil {
		h.logger.Error("revoke api key failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.logger.Info("api key revoked", "id", id, "by", adminName(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
