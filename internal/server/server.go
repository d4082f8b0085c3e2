// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"authgate/internal/observability/logging"
)

// Server represents the gateway's HTTP server pair (app + metrics)
type Server struct {
	httpServer      *http.Server
	metricsServer   *http.Server
	tlsCertPath     string
	tlsKeyPath      string
	logger          *logging.Logger
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	// Address is the address to listen on
	Address string

	// MetricsAddress is the address to listen on for metrics
	MetricsAddress string

	// TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool

		// CertPath is the path to the TLS certificate
		CertPath string

		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// ShutdownTimeout is the maximum time to wait for a graceful shutdown
	ShutdownTimeout time.Duration
}

// New creates a new server
func New(config Config, handler http.Handler, metricsHandler http.Handler, logger *logging.Logger) *Server {
	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.TLS.Enabled {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	metricsServer := &http.Server{
		Addr:              config.MetricsAddress,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		metricsServer:   metricsServer,
		tlsCertPath:     config.TLS.CertPath,
		tlsKeyPath:      config.TLS.KeyPath,
		logger:          logger.WithModule("server"),
		shutdownTimeout: config.ShutdownTimeout,
	}
}

// Start starts the metrics server and then serves the main listener
func (s *Server) Start() error {
	go func() {
		s.logger.Info("Starting metrics server", "address", s.metricsServer.Addr)
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server failed", logging.Err(err))
		}
	}()

	if s.httpServer.TLSConfig != nil {
		s.logger.Info("Starting HTTPS server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServeTLS(s.tlsCertPath, s.tlsKeyPath); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTPS server failed: %w", err)
		}
	} else {
		s.logger.Info("Starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	return nil
}

// Stop stops the servers gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping servers", "timeout", s.shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shut down metrics server", logging.Err(err))
	} else {
		s.logger.Info("Metrics server stopped")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", logging.Err(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
