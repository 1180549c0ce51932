package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rhuss/coursesearch/pkg/auth"
	"github.com/rhuss/coursesearch/pkg/config"
	"github.com/rhuss/coursesearch/pkg/mcpserver"
	"github.com/rhuss/coursesearch/pkg/observability"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/transport"
	transporthttp "github.com/rhuss/coursesearch/pkg/transport/http"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP server",
		Long: `Run the HTTP server. It exposes:

  GET /v1/courses/{id}/search?q=term   JSON search API
  GET /search?courseid=N&q=term        HTML search page
  GET /healthz, /readyz                liveness and readiness
  GET /metrics                         Prometheus metrics (observability.metrics)
  /mcp                                 MCP streamable HTTP endpoint (mcp.enabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg)
		},
	}
}

// serve runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.Tracing.Enabled,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		ServiceName:    cfg.Observability.Tracing.ServiceName,
		ServiceVersion: version,
		SampleRatio:    cfg.Observability.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}()

	srv, closeStore, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return srv.Run(ctx)
}

// newServer opens the store and assembles the HTTP server with every
// configured surface. The returned func closes the store.
func newServer(ctx context.Context, cfg *config.Config) (*transporthttp.Server, func(), error) {
	store, err := openStore(ctx, cfg.Storage, cfg.Storage.SeedFile != "")
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}

	if cfg.Storage.SeedFile != "" {
		if _, err := seedOnce(ctx, store, cfg.Storage.SeedFile); err != nil {
			closeStore()
			return nil, nil, err
		}
	}

	agg, err := newAggregator(store, cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	opts, err := serverOptions(cfg, agg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	return transporthttp.NewServer(agg, store, opts...), closeStore, nil
}

func serverOptions(cfg *config.Config, agg *search.Aggregator) ([]transporthttp.ServerOption, error) {
	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithBaseURL(cfg.Server.BaseURL),
		transporthttp.WithSearchMiddleware(auth.CourseAccess()),
	}

	public := slices.Clone(auth.PublicPaths)
	if cfg.Observability.Metrics.Enabled {
		path := cfg.Observability.Metrics.Path
		opts = append(opts, transporthttp.WithHandler("GET "+path, promhttp.Handler()))
		if !slices.Contains(public, path) {
			public = append(public, path)
		}
	}

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		return nil, err
	}

	if cfg.MCP.Enabled {
		mcpOpts := mcpserver.Options{BaseURL: cfg.Server.BaseURL, Version: version}
		if cfg.Auth.Type != "none" {
			mcpOpts.Verifier = mcpserver.Verifier(chain)
		}
		searcher := transport.Chain(auth.CourseAccess())(agg)
		opts = append(opts, transporthttp.WithHandler(cfg.MCP.Path, mcpserver.New(searcher, mcpOpts).Handler()))
		slog.Info("MCP endpoint enabled", "path", cfg.MCP.Path, "bearer_required", mcpOpts.Verifier != nil)
	}

	if authMW := newAuthMiddleware(cfg.Auth, chain, public); authMW != nil {
		opts = append(opts, transporthttp.WithHTTPMiddleware(authMW))
	}

	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithRouteMiddleware(observability.MetricsMiddleware))
	}

	return opts, nil
}
