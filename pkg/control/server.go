package control

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lshknn/dlsh/pkg/control/middleware"
	"github.com/lshknn/dlsh/pkg/observability"
)

// Config holds the control-plane server configuration.
type Config struct {
	Host      string
	Port      int
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
}

// Address returns the server's listen address (host:port).
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server is the REST control plane: job submission and status polling,
// behind JWT auth and per-client rate limiting. Which paths require the
// admin role is set by Config.Auth.AdminPaths (prefix match, any method).
type Server struct {
	config     Config
	registry   *Registry
	log        *observability.Logger
	metrics    *observability.Metrics
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a control-plane server over the given job registry.
func NewServer(config Config, registry *Registry, log *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		config:   config,
		registry: registry,
		log:      log,
		metrics:  metrics,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handleHealth)
	s.mux.HandleFunc("/v1/jobs", s.routeJobs)
	s.mux.HandleFunc("/v1/jobs/", s.handleJob)
}

func (s *Server) routeJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleSubmit(w, r)
		return
	}
	s.handleList(w, r)
}

// withMiddleware wraps the mux with logging, rate limiting, then auth,
// so auth is the outermost layer: unauthenticated requests never reach
// the rate limiter or a handler, and per-user rate limiting sees the
// claims auth put on the context.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = s.loggingMiddleware(handler)
	limiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(limiter)(handler)
	handler = middleware.AuthMiddleware(s.config.Auth)(handler)
	return handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		d := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordControlRequest(r.Method+" "+r.URL.Path, fmt.Sprintf("%d", wrapped.status), d)
		}
		if s.log != nil {
			s.log.Info("control request", map[string]interface{}{
				"method": r.Method, "path": r.URL.Path, "status": wrapped.status, "duration": d,
			})
		}
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (w *statusCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Start runs the HTTP server until it is stopped; it always returns a
// non-nil error except after a graceful Stop.
func (s *Server) Start() error {
	if s.log != nil {
		s.log.Info("starting control plane", map[string]interface{}{"addr": s.config.Address()})
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
