// Package server exposes the search proxy as a PyPI-shaped REST API.
//
// Routes:
//
//	GET  /                    service info
//	GET  /health              liveness probe
//	GET  /search              run or replay a search (?q=)
//	POST /search              run or replay a search (JSON body)
//	POST /readme              draft (or replay) a README for request metadata
//	GET  /readme/by-name/{name}  latest cached README for a package
//	POST /generate_package    build a package ZIP from a README
//	GET  /availability        name-existence check (?name=)
//	POST /availability/batch  name-existence check for many names
//	GET  /search/history      recent searches
//	GET  /cache/stats         cache record counts
//	DELETE /cache/clear       drop all caches
//	GET  /stats               runtime metrics and index state
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/cache"
	"github.com/raphaelgruber/paipi-go/internal/codegen"
	"github.com/raphaelgruber/paipi-go/internal/index"
	"github.com/raphaelgruber/paipi-go/internal/metrics"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// Server timeouts.
const (
	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	// Searches and package generation hold the connection for several model
	// round-trips, so the write timeout is generous.
	WriteTimeout = 10 * time.Minute
)

// Searcher runs the search pipeline. Implemented by search.Service.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResponse, error)
}

// ReadmeDrafter drafts README markdown. Implemented by readme.Generator.
type ReadmeDrafter interface {
	Markdown(ctx context.Context, req models.ReadmeRequest) string
}

// Oracle answers name-existence queries and reports index freshness.
// Implemented by index.Oracle.
type Oracle interface {
	Exists(name string) bool
	Count() int
	Check(ctx context.Context) (index.State, error)
}

// PackageBuilder generates a library tree for a spec. Implemented by
// codegen.Runner.
type PackageBuilder interface {
	Generate(ctx context.Context, spec codegen.Spec) (string, error)
}

// Deps carries the collaborators the server needs. Builder may be nil when
// docker is unavailable; the generation endpoint then reports 503.
type Deps struct {
	Searcher  Searcher
	Readme    ReadmeDrafter
	Cache     *cache.Manager
	Oracle    Oracle
	Builder   PackageBuilder
	Collector *metrics.Collector
	Logger    *slog.Logger
	Version   string
}

// Server is the HTTP front of the search proxy.
type Server struct {
	mux *http.ServeMux

	searcher  Searcher
	readme    ReadmeDrafter
	cache     *cache.Manager
	oracle    Oracle
	builder   PackageBuilder
	collector *metrics.Collector
	logger    *slog.Logger
	version   string
}

// New creates a server with all routes registered.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		searcher:  deps.Searcher,
		readme:    deps.Readme,
		cache:     deps.Cache,
		oracle:    deps.Oracle,
		builder:   deps.Builder,
		collector: deps.Collector,
		logger:    logger,
		version:   deps.Version,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("POST /readme", s.handleReadme)
	s.mux.HandleFunc("GET /readme/by-name/{name}", s.handleReadmeByName)
	s.mux.HandleFunc("POST /generate_package", s.handleGeneratePackage)
	s.mux.HandleFunc("GET /availability", s.handleAvailability)
	s.mux.HandleFunc("POST /availability/batch", s.handleAvailabilityBatch)
	s.mux.HandleFunc("GET /search/history", s.handleHistory)
	s.mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /cache/clear", s.handleCacheClear)
	s.mux.HandleFunc("GET /stats", s.handleStats)

	// Unmatched paths get a JSON 404 instead of the default text page.
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, s.logger, http.StatusNotFound, "not found", r.URL.Path)
	})
}

// Handler returns the routed handler with middleware applied.
// Order: recovery, request ID, logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr, "version", s.version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
