package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/dealer-gateway/internal/auth"
	"github.com/hongminglow/dealer-gateway/internal/config"
	"github.com/hongminglow/dealer-gateway/internal/gateway"
	"github.com/hongminglow/dealer-gateway/internal/http/handlers"
	"github.com/hongminglow/dealer-gateway/internal/middleware"
	"github.com/hongminglow/dealer-gateway/internal/observability"
	"github.com/hongminglow/dealer-gateway/internal/query"
	"github.com/hongminglow/dealer-gateway/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.UserStore, logger *slog.Logger) *Server {
	signer := auth.NewAssertionSigner(cfg.AssertionSecret, cfg.AssertionIssuer, cfg.AssertionTTL)
	processor := query.NewClient(cfg.QueryServiceURL, signer, &http.Client{Timeout: cfg.RequestTimeout})
	return NewWithProcessor(cfg, store, processor, logger)
}

// NewWithProcessor is New with an explicit query processor.
func NewWithProcessor(cfg config.Config, store storage.UserStore, processor query.Processor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	pinger, _ := store.(handlers.Pinger)
	health := handlers.NewHealthHandler(time.Now(), pinger)
	health.Register(mux)
	mux.Handle("/metrics", observability.Handler())

	svc := gateway.New(store, processor, gateway.Options{Timeout: cfg.RequestTimeout, Logger: logger})
	handlers.NewGatewayHandler(svc, logger).Register(mux)

	var handler http.Handler = mux
	handler = middleware.Deadline(cfg.RequestTimeout, handler)
	handler = observability.MetricsMiddleware(handler)
	handler = middleware.Logging(logger, handler)
	handler = middleware.CORS(cfg.CORSOrigins, handler)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
