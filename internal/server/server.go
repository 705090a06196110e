// Package server exposes the extraction service over HTTP: synchronous and
// queued extraction, job lookup, XLSX export, health, and Prometheus metrics.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skaul-dev/billextract/internal/async"
	"github.com/skaul-dev/billextract/internal/export"
	"github.com/skaul-dev/billextract/internal/metrics"
	"github.com/skaul-dev/billextract/internal/pipeline"
	"github.com/skaul-dev/billextract/internal/repository"
)

type Config struct {
	Addr            string // e.g. ":8080"
	UploadDir       string // where multipart uploads are staged
	MaxUploadBytes  int64  // default 32 MiB
	ShutdownTimeout time.Duration
}

type Server struct {
	server    *http.Server
	router    chi.Router
	cfg       Config
	processor *pipeline.Processor
	queue     *async.Queue
	jobs      repository.JobRepository
	exporter  *export.Service
	logger    *slog.Logger
}

func NewServer(cfg Config, processor *pipeline.Processor, queue *async.Queue, jobs repository.JobRepository, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	router := chi.NewRouter()
	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Addr,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 5 * time.Minute, // synchronous vision extraction is slow
			IdleTimeout:  60 * time.Second,
		},
		router:    router,
		cfg:       cfg,
		processor: processor,
		queue:     queue,
		jobs:      jobs,
		exporter:  exporter,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.slogMiddleware)
	s.router.Use(metrics.Middleware)
	s.router.Use(rateLimitHandler)
}

func (s *Server) setupRoutes() {
	s.router.Post("/extract-bill-data", s.handleExtract)
	s.router.Get("/jobs", s.handleListJobs)
	s.router.Get("/jobs/{id}", s.handleGetJob)
	s.router.Get("/jobs/{id}/export.xlsx", s.handleExportJob)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("server.listen", "addr", s.cfg.Addr)
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server.shutdown")
	return s.server.Shutdown(ctx)
}
