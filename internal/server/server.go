// Package server wraps http.Server with the portal's timeouts, optional TLS
// and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"game-portal/internal/common/logging"
)

// Config holds HTTP server settings
type Config struct {
	Port    string
	TLSCert string
	TLSKey  string
}

// Server is the portal HTTP server
type Server struct {
	http   *http.Server
	config Config
	logger logging.Logger
}

// New creates a server for the given handler
func New(config Config, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Server{
		http: &http.Server{
			Addr:    ":" + config.Port,
			Handler: handler,
			// Downloads can take a while; write timeout stays generous
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called. It blocks.
func (s *Server) Start() error {
	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		s.logger.Info("Server listening with TLS", logging.String("addr", s.http.Addr))
		return s.http.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
	}

	s.logger.Info("Server listening", logging.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server shutting down")
	return s.http.Shutdown(ctx)
}
