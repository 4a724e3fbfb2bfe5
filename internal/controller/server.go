// Package controller wires the scraperd HTTP command gateway.
package controller

import (
	"context"
	"net/http"
	"time"

	"scrapedesk/internal/config"
	"scrapedesk/internal/controller/handlers"
	"scrapedesk/internal/controller/middleware"
)

// Server is the HTTP server for the command gateway.
type Server struct {
	httpServer *http.Server
}

// New creates a new gateway server. Commands are served at
// POST /commands/{name} behind request ids, bearer auth and rate limiting.
func New(addr string, h *handlers.Handlers, cfg *config.Config, metricsHandler http.Handler) *Server {
	mux := http.NewServeMux()

	// Probes and metrics
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)
	var commands http.Handler = http.HandlerFunc(h.Command)
	commands = limiter.Middleware()(commands)
	commands = middleware.Auth(cfg.APIToken)(commands)
	commands = middleware.RequestID(commands)
	mux.Handle("POST /commands/{name}", commands)

	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Scrapes and SMTP sends run inside the request.
			WriteTimeout: cfg.ScrapeTimeout + 30*time.Second,
		},
	}
}

// Handler exposes the routed mux.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
