package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/server/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": message} envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// readJSON decodes a size-limited request body into v and closes it.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// parseID parses a positive integer path parameter.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// adminName names the logged in admin for audit log lines.
func adminName(r *http.Request) string {
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		return p.User
	}
	return "unknown"
}
