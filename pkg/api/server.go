package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/protorules/pkg/cache"
	"github.com/platinummonkey/protorules/pkg/httputil"
	"github.com/platinummonkey/protorules/pkg/observability"
)

// DefaultMaxBodyBytes caps request bodies
const DefaultMaxBodyBytes = 4 << 20

// Server represents our API server
type Server struct {
	cache    *cache.CompiledCache
	router   *mux.Router
	handler  http.Handler
	logger   *observability.Logger
	registry *prometheus.Registry
	maxBody  int64
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *observability.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRegistry exposes registry on /metrics
func WithMetricsRegistry(registry *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithMaxBodyBytes caps the size of request bodies
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewServer creates a new API server backed by cc
func NewServer(cc *cache.CompiledCache, opts ...ServerOption) *Server {
	s := &Server{
		cache:   cc,
		router:  mux.NewRouter(),
		logger:  observability.NewNopLogger(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(s.maxBody),
	)(s.router)
	return s
}

// setupRoutes registers every route on the router
func (s *Server) setupRoutes() {
	s.router.Handle("/v1/schemas", s.handle(s.compileSchema)).Methods(http.MethodPost)
	s.router.Handle("/v1/schemas/{key}", s.handle(s.getSchema)).Methods(http.MethodGet)
	s.router.Handle("/v1/schemas/{key}", s.handle(s.deleteSchema)).Methods(http.MethodDelete)
	s.router.Handle("/v1/schemas/{key}/messages/{message}/validate", s.handle(s.validateMessage)).Methods(http.MethodPost)
	s.router.Handle("/v1/cache/stats", s.handle(s.cacheStats)).Methods(http.MethodGet)
	s.router.Handle("/healthz", s.handle(s.health)).Methods(http.MethodGet)
	if s.registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.registry)).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
