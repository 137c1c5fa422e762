package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/observability"
	"github.com/pippora/pippora/internal/server/handlers"
	servermw "github.com/pippora/pippora/internal/server/middleware"
)

// Timeouts configures the underlying http.Server.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Option customizes a Server.
type Option func(*Server)

// WithPortraits mounts POST /api/generate-portrait.
func WithPortraits(gen handlers.PortraitGenerator) Option {
	return func(s *Server) { s.portraits = gen }
}

// WithBlog mounts POST /api/generate-blog.
func WithBlog(gen handlers.BlogGenerator) Option {
	return func(s *Server) { s.blog = gen }
}

// WithCORS sets the headers written on /api responses.
func WithCORS(cfg servermw.CORSConfig) Option {
	return func(s *Server) { s.cors = cfg }
}

// WithTrustedProxy makes client IP resolution honor X-Forwarded-For and X-Real-IP.
func WithTrustedProxy(trust bool) Option {
	return func(s *Server) { s.trustProxy = trust }
}

// WithTimeouts overrides the default server timeouts. Zero values keep the default.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		if t.Read > 0 {
			s.timeouts.Read = t.Read
		}
		if t.Write > 0 {
			s.timeouts.Write = t.Write
		}
		if t.Idle > 0 {
			s.timeouts.Idle = t.Idle
		}
	}
}

// WithHealth registers a named readiness check.
func WithHealth(name string, checker handlers.HealthChecker) Option {
	return func(s *Server) {
		if checker != nil {
			handlers.RegisterHealthChecker(name, checker)
		}
	}
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int

	portraits  handlers.PortraitGenerator
	blog       handlers.BlogGenerator
	cors       servermw.CORSConfig
	trustProxy bool
	timeouts   Timeouts
}

// New creates a new HTTP server instance
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:       host,
		port:       port,
		cors:       servermw.DefaultCORSConfig(),
		// Image generation routinely takes longer than a typical API call.
		timeouts: Timeouts{Read: 30 * time.Second, Write: 180 * time.Second, Idle: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	// Our custom middleware in correct order (ClientIP → RequestID → Metrics → Recovery)
	r.Use(servermw.ClientIP(s.trustProxy)) // 0. Client address for rate limiting
	r.Use(servermw.RequestID)              // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics)         // 2. Metrics (measure everything)
	r.Use(servermw.ErrorHandler)           // 3. Error handling (after metrics)
	r.Use(servermw.Recovery)               // 4. Panic recovery (outermost)

	// Chi's Recoverer is redundant since we have our own Recovery middleware
	// r.Use(middleware.Recoverer)

	// Standardized error responses using centralized HandleError
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		// Use gofulmen error envelope for 404 - correlation ID extracted from request context
		err := apperrors.NewNotFoundError("The requested resource was not found")
		HandleError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		// Use gofulmen error envelope for 405 - correlation ID extracted from request context
		err := apperrors.NewMethodNotAllowedError("Method not allowed")
		HandleError(w, req, err)
	})

	s.router = r

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	// Register routes
	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
