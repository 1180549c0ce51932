package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/coursesearch/pkg/transport"
)

// Server wraps an http.Server with the transport adapter and manages
// the full lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	adapter    *Adapter
	config     ServerConfig
	logger     *slog.Logger
}

// ServerConfig holds configuration for the transport server.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Adapter         Config
	Logger          *slog.Logger

	// routes are extra handlers mounted on the adapter mux.
	routes []route

	// wrap is applied to the full handler, outermost last.
	wrap []func(http.Handler) http.Handler

	// routeWrap is applied to the route mux, see Adapter.Use.
	routeWrap []func(http.Handler) http.Handler

	// searchMW runs inside the default searcher middleware.
	searchMW []transport.Middleware
}

type route struct {
	pattern string
	handler http.Handler
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Adapter:         DefaultConfig(),
		Logger:          slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.config.Addr = addr }
}

// WithTimeouts sets the read and write timeouts of the HTTP server.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.config.ReadTimeout = read
		s.config.WriteTimeout = write
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithBaseURL sets the site root result links are resolved against.
func WithBaseURL(base string) ServerOption {
	return func(s *Server) { s.config.Adapter.BaseURL = base }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.config.Logger = l; s.logger = l }
}

// WithHandler mounts an additional handler, such as /metrics or /mcp.
func WithHandler(pattern string, h http.Handler) ServerOption {
	return func(s *Server) { s.config.routes = append(s.config.routes, route{pattern, h}) }
}

// WithHTTPMiddleware wraps the whole HTTP handler. Middleware added first
// runs innermost.
func WithHTTPMiddleware(mw func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) { s.config.wrap = append(s.config.wrap, mw) }
}

// WithRouteMiddleware wraps the route mux directly, so the middleware can
// read the matched pattern from r.Pattern. Use it for per-route metrics.
func WithRouteMiddleware(mw func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) { s.config.routeWrap = append(s.config.routeWrap, mw) }
}

// WithSearchMiddleware adds searcher middleware. It runs after recovery,
// request ID and logging, in the order given.
func WithSearchMiddleware(mw ...transport.Middleware) ServerOption {
	return func(s *Server) { s.config.searchMW = append(s.config.searchMW, mw...) }
}

// NewServer creates a new transport server around searcher. The health
// checker is optional (pass nil to skip readiness checks).
// Default middleware (recovery, request ID, logging) is applied automatically.
func NewServer(searcher transport.Searcher, health transport.HealthChecker, opts ...ServerOption) *Server {
	s := &Server{
		config: DefaultServerConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	defaultMW := []transport.Middleware{
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(s.logger),
	}
	defaultMW = append(defaultMW, s.config.searchMW...)

	s.adapter = NewAdapter(searcher, health, s.config.Adapter, defaultMW...)
	for _, r := range s.config.routes {
		s.adapter.Handle(r.pattern, r.handler)
	}
	for _, mw := range s.config.routeWrap {
		s.adapter.Use(mw)
	}

	handler := s.adapter.Handler()
	for _, mw := range s.config.wrap {
		handler = mw(handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server and blocks until a shutdown signal
// (SIGINT or SIGTERM) is received. It then gracefully shuts down,
// waiting for in-flight requests to complete within the configured timeout.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

// ServeOn starts the server on the given listener. Used for testing.
func (s *Server) ServeOn(ln net.Listener) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown gracefully shuts down the server with the given context. Searches
// still running when ctx expires are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		if n := s.adapter.InFlight().CancelAll(); n > 0 {
			s.logger.Warn("cancelled searches still running at shutdown", slog.Int("count", n))
		}
	}
	return err
}
