// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linkpeek/internal/api"
	"github.com/starford/linkpeek/internal/link"
	"github.com/starford/linkpeek/internal/linkservice"
	"github.com/starford/linkpeek/internal/mcpserver"
	"github.com/starford/linkpeek/internal/reconcile"
	"github.com/starford/linkpeek/internal/session"
	"github.com/starford/linkpeek/internal/sse"
	"github.com/starford/linkpeek/internal/storage"
	"github.com/starford/linkpeek/internal/vault"
	"github.com/starford/linkpeek/internal/workspace"
)

var errConfigRequired = errors.New("config is required")

// components is the wired object graph shared by the HTTP and MCP modes.
type components struct {
	vault  *vault.Vault
	views  *workspace.Store
	broker *sse.Broker
	coord  *reconcile.Coordinator
	svc    *linkservice.Service
}

func (c *components) close() {
	c.coord.Close()
	c.broker.Close()
	c.views.Close()
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openVault ensures the vault directory exists and builds its link cache.
func openVault(cfg *Config, logger *slog.Logger) (*vault.Vault, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path, storage.WithIgnore(cfg.Vault.Ignore...))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	v := vault.New(store, logger)
	if err := v.Refresh(); err != nil {
		logger.Warn("initial vault scan failed", slog.String("error", err.Error()))
	}
	return v, nil
}

func build(ctx context.Context, cfg *Config, logger *slog.Logger) (*components, error) {
	rules, err := cfg.Resolver.Table()
	if err != nil {
		return nil, fmt.Errorf("build resolver rules: %w", err)
	}

	v, err := openVault(cfg, logger)
	if err != nil {
		return nil, err
	}

	views, err := workspace.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init view store: %w", err)
	}

	broker := sse.NewBroker(cfg.SSE.StaleThrottle)
	broker.SetKeepalive(cfg.SSE.Keepalive)
	host := workspace.NewHost(views, broker, logger)
	coord := reconcile.NewCoordinator(ctx, host, logger, reconcile.Options{
		Enabled:  cfg.Reconcile.Enabled,
		Debounce: cfg.Reconcile.Debounce,
		Timeout:  cfg.Reconcile.Timeout,
		OnPlan: func(v reconcile.View, p reconcile.Plan) {
			if p.Empty() {
				return
			}
			logger.Info("reconciled duplicates",
				slog.String("view", v.ID),
				slog.String("case", string(p.Case)),
				slog.Any("closed", p.Close),
				slog.String("back", p.Back))
		},
	})

	svc := linkservice.NewService(linkservice.Deps{
		Resolver:    link.NewResolver(rules),
		Vault:       v,
		Sessions:    session.NewRegistry(cfg.Drag.Threshold),
		Views:       views,
		Host:        host,
		Coordinator: coord,
		Publisher:   broker,
		Logger:      logger,
	})

	return &components{vault: v, views: views, broker: broker, coord: coord, svc: svc}, nil
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Bool("reconcile", cfg.Reconcile.Enabled),
		slog.Duration("drag_threshold", cfg.Drag.Threshold))

	g, gCtx := errgroup.WithContext(ctx)

	c, err := build(gCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.svc.Ready(req.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; SSE lives at /api/events.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start vault watcher with SSE callback.
	g.Go(func() error {
		if err := c.vault.Watch(gCtx, cfg.Vault.WatchDebounce, c.broker.PublishFileEvent); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Pending reconciliation would act on views the plugin is tearing down.
		c.coord.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Returning an error cancels gCtx so the watcher stops too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully",
		slog.Int64("reconcile_runs", c.coord.Stats().Runs))
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.vault.Watch(gCtx, cfg.Vault.WatchDebounce, nil); err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	serveErr := mcpserver.New(c.svc, app.version).ServeStdio()
	cancel()
	_ = g.Wait()

	if serveErr != nil {
		return fmt.Errorf("mcp server: %w", serveErr)
	}
	return nil
}

// ResolveOnce resolves the link under cursor in line against the configured
// vault without starting any server. It reports false when there is no link.
func ResolveOnce(ctx context.Context, cfg *Config, line string, cursor int) (*linkservice.Resolution, bool, error) {
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	rules, err := cfg.Resolver.Table()
	if err != nil {
		return nil, false, fmt.Errorf("build resolver rules: %w", err)
	}
	v, err := openVault(cfg, logger)
	if err != nil {
		return nil, false, err
	}
	svc := linkservice.NewService(linkservice.Deps{
		Resolver: link.NewResolver(rules),
		Vault:    v,
		Logger:   logger,
	})
	res, ok := svc.Resolve(ctx, link.Input{Text: &link.TextContext{Line: line, Cursor: cursor}})
	return res, ok, nil
}
