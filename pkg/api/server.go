// Package api exposes the directory and file services over HTTP.
//
// Routes (all under /api/v1, authenticated by the owner header):
//
//	POST   /folder     create a folder            (JSON FolderRequest)
//	GET    /folder     read a folder              (?folder=<path>)
//	PUT    /folder     rename a folder            (JSON RenameRequest)
//	DELETE /folder     delete a folder subtree    (?folder=<path>)
//	POST   /file       upload a file              (multipart: file, parentPath[, discriminator])
//	GET    /file       download a file            (?fullPath=<path>)
//	PUT    /file       replace a file's content   (multipart: file, parentPath[, discriminator])
//	DELETE /file       delete a file              (?fullPath=<path>)
//	GET    /directory  list every record, without payloads
//
// GET /healthz is unauthenticated and reports record store health.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/internal/ratelimiter"
	"github.com/marmos91/dittodir/pkg/metrics"
	"github.com/marmos91/dittodir/pkg/service"
)

// Config configures the API server.
type Config struct {
	// Port to listen on. Default: 8080
	Port int

	// OwnerHeader carries the authenticated owner. Default: X-Remote-User
	OwnerHeader string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxUploadBytes bounds multipart uploads. Default: 32MB
	MaxUploadBytes int64

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// RequestsPerSecond per owner; 0 disables rate limiting
	RequestsPerSecond uint
	Burst             uint
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.OwnerHeader == "" {
		c.OwnerHeader = "X-Remote-User"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Healthchecker reports backend health; record.RecordStore satisfies it.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// Server serves the HTTP API.
type Server struct {
	config       Config
	dirs         *service.DirectoryService
	files        *service.FileService
	health       Healthchecker
	metrics      metrics.APIMetrics
	limiter      *ratelimiter.KeyedLimiter
	router       chi.Router
	server       *http.Server
	shutdownOnce sync.Once
}

// NewServer wires the router. A nil m disables API metrics; a nil health
// makes /healthz always succeed.
func NewServer(config Config, dirs *service.DirectoryService, files *service.FileService, health Healthchecker, m metrics.APIMetrics) *Server {
	config.applyDefaults()
	if m == nil {
		m = metrics.NewNoopAPIMetrics()
	}

	s := &Server{
		config:  config,
		dirs:    dirs,
		files:   files,
		health:  health,
		metrics: m,
		limiter: ratelimiter.New(config.RequestsPerSecond, config.Burst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(m))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireOwner(config.OwnerHeader))
		if s.limiter.Enabled() {
			r.Use(rateLimit(s.limiter, m))
		}

		r.Post("/folder", s.handleCreateFolder)
		r.Get("/folder", s.handleReadFolder)
		r.Put("/folder", s.handleUpdateFolder)
		r.Delete("/folder", s.handleDeleteFolder)

		r.Post("/file", s.handleUploadFile)
		r.Get("/file", s.handleReadFile)
		r.Put("/file", s.handleUpdateFile)
		r.Delete("/file", s.handleDeleteFile)

		r.Get("/directory", s.handleListDirectory)
	})

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.limiter.Enabled() {
		go s.limiter.RunPruner(ctx, time.Minute, 10*time.Minute)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening on %s", listener.Addr())

		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error: %v", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}
