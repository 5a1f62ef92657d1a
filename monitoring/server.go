// Package monitoring exposes the command gateway over a loopback HTTP
// surface: health, Prometheus metrics, and the serial API endpoints
// the web deployment talks to.
package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"rs485console/config"
	"rs485console/gateway"
)

// Server provides HTTP endpoints for monitoring and serial control
type Server struct {
	config  *config.MonitoringConfig
	gateway *gateway.Gateway
	server  *http.Server
	logger  *slog.Logger
}

// NewServer creates a new monitoring server
func NewServer(cfg *config.MonitoringConfig, instanceID, version string, gw *gateway.Gateway, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(instanceID, version, gw)
	mux.Handle("/health", healthHandler)

	metricsHandler := NewMetricsHandler(gw)
	mux.Handle("/metrics", metricsHandler)

	serialHandler := NewSerialHandler(gw, logger)
	mux.HandleFunc("/api/ports", serialHandler.ListPorts)
	mux.HandleFunc("/api/serial/open", serialHandler.Open)
	mux.HandleFunc("/api/serial/close", serialHandler.Close)
	mux.HandleFunc("/api/serial/write", serialHandler.Write)
	mux.HandleFunc("/api/serial/read", serialHandler.Read)

	sysPortsHandler := NewSysPortsHandler()
	mux.Handle("/api/sysports", sysPortsHandler)

	return &Server{
		config:  cfg,
		gateway: gw,
		server: &http.Server{
			Addr:         cfg.Listen,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the route table, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the monitoring server
func (s *Server) Start() error {
	s.logger.Info("Starting monitoring server", "listen", s.config.Listen)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the monitoring server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping monitoring server")
	return s.server.Shutdown(ctx)
}
