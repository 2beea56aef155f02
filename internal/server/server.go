// Package server exposes run status and metrics over HTTP while a run is in
// progress.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusSource reports the state of the current run.
type StatusSource interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	GetStatus() map[string]string
}

// Server serves /health/live, /health/ready and /metrics on one listener.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewServer creates a status server on addr, e.g. ":9464".
func NewServer(addr string, source StatusSource, registry *prometheus.Registry, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewHandler(source, registry, logger),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler returns the status mux.
func NewHandler(source StatusSource, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", LivenessHandler(source, logger))
	mux.HandleFunc("/health/ready", ReadinessHandler(source, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// Start binds the listener and serves in the background. Bind errors are
// returned here rather than logged later.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("starting status server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	return s.srv.Shutdown(ctx)
}
