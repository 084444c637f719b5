package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/ui"
)

// DashboardHandler serves the HTML admin dashboard and its login flow.
type DashboardHandler struct {
	auth         *service.AuthService
	keys         *service.APIKeyService
	baseURL      string
	cookieSecure bool
	logger       *slog.Logger
}

// DashboardOptions configures a DashboardHandler.
type DashboardOptions struct {
	// BaseURL is shown in the usage hint on the dashboard.
	BaseURL      string
	CookieSecure bool
	Logger       *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(auth *service.AuthService, keys *service.APIKeyService, opts DashboardOptions) *DashboardHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		auth:         auth,
		keys:         keys,
		baseURL:      opts.BaseURL,
		cookieSecure: opts.CookieSecure,
		logger:       logger,
	}
}

// Root redirects to the dashboard.
// GET /
func (h *DashboardHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// LoginForm renders the login page.
// GET /login
func (h *DashboardHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, func(w http.ResponseWriter) error { return ui.RenderLogin(w) })
}

// Login checks the submitted credentials and starts a session.
// POST /login
func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Login(r.PostFormValue("user"), r.PostFormValue("pass"))
	if err != nil {
		h.logger.Warn("dashboard login failed", "remote_addr", r.RemoteAddr)
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, h.sessionCookie(sess.Token, sess.ExpiresAt))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout ends the session.
// POST /logout
func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(middleware.SessionToken(r))

	c := h.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// Dashboard lists all API keys.
// GET /dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		h.logger.Error("list api keys failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	h.render(w, func(w http.ResponseWriter) error { return ui.RenderDashboard(w, keys, h.baseURL) })
}

// CreateKey creates a key and shows its secret once.
// POST /keys/create
func (h *DashboardHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	created, err := h.keys.Create(r.Context(), r.PostFormValue("name"))
	if err != nil {
		h.logger.Error("create api key failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("api key created", "id", created.Key.ID, "name", created.Key.Name, "by", adminName(r))

	w.Header().Set("Cache-Control", "no-store")
	h.render(w, func(w http.ResponseWriter) error { return ui.RenderCreated(w, created.Key, created.Secret) })
}

// RevokeKey revokes a key and returns to the dashboard. A malformed id is
// ignored.
// POST /keys/revoke/{id}
func (h *DashboardHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	if id, ok := parseID(chi.URLParam(r, "id")); ok {
		if err := h.keys.Revoke(r.Context(), id); err != nil {
			h.logger.Error("revoke api key failed", "id", id, "error", err)
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("api key revoked", "id", id, "by", adminName(r))
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *DashboardHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *DashboardHandler) render(w http.ResponseWriter, fn func(http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fn(w); err != nil {
		h.logger.Error("render page failed", "error", err)
	}
}
