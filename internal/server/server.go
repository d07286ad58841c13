// Package server exposes dependency tree resolution over HTTP.
//
// Routes:
//
//	POST /api/dependency-tree  resolve {"packages": [...]} into {"dependencyTrees": [...]}
//	GET  /healthz              liveness and build version
//	GET  /metrics              Prometheus exposition
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/deptree/pkg/deptree"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// maxBodySize bounds request bodies.
	maxBodySize = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// Resolver builds dependency trees for a batch of root packages.
// *deptree.Builder implements it.
type Resolver interface {
	Build(ctx context.Context, roots []deptree.Request) []*deptree.Node
}

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// Metrics is served at /metrics when non-nil.
	Metrics *Metrics
	// RequestTimeout bounds a single resolution. Subtrees still pending at
	// the deadline are pruned. Zero means no limit.
	RequestTimeout time.Duration
}

// Server is the HTTP boundary around a tree builder.
type Server struct {
	resolver Resolver
	opts     Options
	router   chi.Router
}

// New creates a Server.
func New(r Resolver, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	s := &Server{resolver: r, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)

	r.Post("/api/dependency-tree", s.handleDependencyTree)
	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.opts.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
