package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/keydesk/keydesk/internal/service"
)

// RegistryHandler serves the license key registry endpoints.
type RegistryHandler struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registry *service.RegistryService, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, logger: logger}
}

type addKeyRequest struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	AdminSecret string `json:"admin_secret"`
}

type verifyKeyRequest struct {
	Key string `json:"key"`
}

// AddKey registers a license key.
// POST /add-key
func (h *RegistryHandler) AddKey(w http.ResponseWriter, r *http.Request) {
	var req addKeyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.registry.AddKey(r.Context(), req.Key, req.Type, req.AdminSecret)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid key or type")
	case err != nil:
		h.logger.Error("add key failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
	default:
		h.logger.Info("key added", "type", req.Type)
		writeJSON(w, http.StatusOK, res)
	}
}

// VerifyKey reports whether a license key is valid.
// POST /verify-key
func (h *RegistryHandler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	var req verifyKeyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Key required")
		return
	}

	res, err := h.registry.VerifyKey(r.Context(), req.Key)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Key required")
	case err != nil:
		h.logger.Error("verify key failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
