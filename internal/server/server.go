package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/keydesk/keydesk/internal/config"
	"github.com/keydesk/keydesk/internal/handler"
	"github.com/keydesk/keydesk/internal/server/middleware"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	PublicURL       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	CookieSecure    bool
	LoginPerMinute  int
	AddKeyPerMinute int
	Version         string
}

// ConfigFrom derives the server configuration from the loaded application
// configuration.
func ConfigFrom(c *config.Config, version string) Config {
	return Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		PublicURL:       c.PublicURL(),
		ShutdownTimeout: c.Server.ShutdownTimeout,
		CORSOrigins:     c.Server.CORSOrigins,
		CookieSecure:    c.Auth.CookieSecure,
		LoginPerMinute:  c.RateLimit.LoginPerMinute,
		AddKeyPerMinute: c.RateLimit.AddKeyPerMinute,
		Version:         version,
	}
}

// Services bundles the dependencies the router serves.
type Services struct {
	Store    *store.Store
	Registry *service.RegistryService
	APIKeys  *service.APIKeyService
	Auth     *service.AuthService
}

// Server is the top-level HTTP server for keydesk. It owns the chi router
// and the store handle, which it closes on shutdown.
type Server struct {
	cfg        Config
	svc        Services
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen.
func New(cfg Config, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, "/healthz", "/readyz"))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	loginLimit := middleware.RateLimit(s.cfg.LoginPerMinute)
	addKeyLimit := middleware.RateLimit(s.cfg.AddKeyPerMinute)

	// --- Health checks and API description (no auth required) ---
	health := handler.NewHealthHandler(s.svc.Store)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.PublicURL, s.cfg.Version).ServeSpec)

	// --- Key registry ---
	reg := handler.NewRegistryHandler(s.svc.Registry, s.logger)
	r.With(addKeyLimit).Post("/add-key", reg.AddKey)
	r.Post("/verify-key", reg.VerifyKey)

	// --- Dashboard ---
	dash := handler.NewDashboardHandler(s.svc.Auth, s.svc.APIKeys, handler.DashboardOptions{
		BaseURL:      s.cfg.PublicURL,
		CookieSecure: s.cfg.CookieSecure,
		Logger:       s.logger,
	})
	r.Get("/", dash.Root)
	r.Get("/login", dash.LoginForm)
	r.With(loginLimit).Post("/login", dash.Login)
	r.Post("/logout", dash.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(s.svc.Auth, true))
		r.Get("/dashboard", dash.Dashboard)
		r.Post("/keys/create", dash.CreateKey)
		r.Post("/keys/revoke/{id}", dash.RevokeKey)
	})

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/validate-key", handler.NewValidateHandler(s.svc.APIKeys, s.logger).ValidateKey)

		sys := handler.NewSystemHandler(s.svc.Auth, s.svc.APIKeys, s.logger)
		r.With(loginLimit).Post("/admin/session", sys.Login)
		r.Delete("/admin/session", sys.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin(s.svc.Auth, false))
			r.Get("/keys", sys.ListAPIKeys)
			r.Post("/keys", sys.CreateAPIKey)
			r.Post("/keys/{id}/revoke", sys.RevokeAPIKey)
		})
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// a SIGINT or SIGTERM is received. It then drains in-flight requests and
// closes the store.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until shutdown. See ListenAndServe.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String(), "url", s.cfg.PublicURL)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.closeStore()
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.closeStore()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) closeStore() {
	if s.svc.Store == nil {
		return
	}
	if err := s.svc.Store.Close(); err != nil {
		s.logger.Error("close store", "error", err)
	}
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
