package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/keydesk/keydesk/internal/service"
)

// ValidateHandler serves the header-gated API key check.
type ValidateHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler(keys *service.APIKeyService, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{keys: keys, logger: logger}
}

type validateResponse struct {
	OK    bool   `json:"ok"`
	Owner string `json:"owner"`
}

// ValidateKey checks the x-api-key header.
// GET /api/validate-key
func (h *ValidateHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Validate(r.Context(), r.Header.Get("x-api-key"))
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, "Missing x-api-key")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Invalid or revoked API key")
	case err != nil:
		h.logger.Error("validate api key failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	default:
		writeJSON(w, http.StatusOK, validateResponse{OK: true, Owner: key.Name})
	}
}
