// Package httpserver wraps http.Server with the listener and shutdown
// behavior both deployments rely on.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bestsbot/backend/internal/config"
)

// Server owns the HTTP listener.
type Server struct {
	srv *http.Server
}

// New builds a server bound to host:port from config.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start blocks serving requests until Shutdown or failure.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
