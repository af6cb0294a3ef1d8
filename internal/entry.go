// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notebase/internal/api"
	"github.com/starford/notebase/internal/index"
	"github.com/starford/notebase/internal/mcpserver"
	"github.com/starford/notebase/internal/noteservice"
	"github.com/starford/notebase/internal/sse"
	"github.com/starford/notebase/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the content store server: the vault is indexed into SQLite,
// watched for changes and served over the REST API.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := NewLogger(cfg, app.logOut)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path, storage.WithExclude(cfg.Vault.Exclude...))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite record store.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.EventsThrottle)
	defer broker.Close()

	publish := func(ch index.Change) {
		broker.PublishRecordEvent(ch.Kind, ch.Record.ID, ch.Record.Path)
	}

	// Build record service and API router.
	svc := noteservice.NewService(store, db,
		noteservice.WithLogger(logger),
		noteservice.WithOnChange(publish))
	sessions := api.NewSessions(cfg.Auth.Email, cfg.Auth.Password, cfg.Auth.TokenTTL)
	apiRouter := api.NewRouter(svc, sessions, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher; its changes reach SSE clients like API writes do.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, logger, publish); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
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

		// SSE streams only end when the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server is asked to stop, so the
// watcher exits with it.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio using the configured content
// client. It returns when stdin is closed.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(cfg, app.logOut)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stack, err := OpenClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open client: %w", err)
	}
	defer stack.Close()

	logger.Info("MCP server starting", slog.String("backend", cfg.Client.Backend))

	g, gCtx := errgroup.WithContext(ctx)
	if cfg.Cache.GCTime > 0 {
		g.Go(func() error {
			stack.Cached.Janitor(gCtx, cfg.Cache.GCTime)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return mcpserver.New(stack.Cached, stack.Activities).ServeStdio()
	})
	return g.Wait()
}
