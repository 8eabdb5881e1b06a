package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/neurasense/connect/internal/core/ports/driven"
	"github.com/neurasense/connect/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	baseURL           string
	callbackErrorPath string

	// Services
	connectService    driving.ConnectService
	connectionService driving.ConnectionService
	identity          driven.IdentityVerifier

	// Infrastructure checked by /ready
	pingers map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// BaseURL is the public application URL used for error redirects.
	BaseURL string

	// CallbackErrorPath, when set, makes callback failures redirect to
	// {BaseURL}{CallbackErrorPath}?oauth_error=...&provider=... instead of
	// answering with JSON.
	CallbackErrorPath string

	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		BaseURL:        "http://localhost:3000",
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server. pingers are checked by /ready under
// their map key; nil entries are skipped.
func NewServer(
	cfg Config,
	connectService driving.ConnectService,
	connectionService driving.ConnectionService,
	identity driven.IdentityVerifier,
	pingers map[string]Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	live := make(map[string]Pinger, len(pingers))
	for name, p := range pingers {
		if p != nil {
			live[name] = p
		}
	}

	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            logger,
		baseURL:           cfg.BaseURL,
		callbackErrorPath: cfg.CallbackErrorPath,
		connectService:    connectService,
		connectionService: connectionService,
		identity:          identity,
		pingers:           live,
	}

	s.setupRoutes()

	s.handler = NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.identity)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Connect flow. Initiation carries the identity token itself because it
	// is reached by full-page navigation. The callback is public.
	s.router.HandleFunc("GET /connect/{provider}", s.handleConnect)
	s.router.HandleFunc("GET /connect/{provider}/callback", s.handleCallback)

	// Connection status
	s.router.Handle("GET /api/v1/connections",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListConnections)))
	s.router.Handle("GET /api/v1/connections/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetConnection)))
	s.router.Handle("DELETE /api/v1/connections/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}
