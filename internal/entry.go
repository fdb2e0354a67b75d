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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/quillhq/vellum/internal/api"
	"github.com/quillhq/vellum/internal/index"
	"github.com/quillhq/vellum/internal/mcpserver"
	"github.com/quillhq/vellum/internal/models"
	"github.com/quillhq/vellum/internal/paths"
	"github.com/quillhq/vellum/internal/scheduler"
	"github.com/quillhq/vellum/internal/sse"
	"github.com/quillhq/vellum/internal/storage"
	"github.com/quillhq/vellum/internal/store"
	"github.com/quillhq/vellum/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("debounce", cfg.Watch.Debounce()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the vault layout exists before the watcher starts; fsnotify
	// only watches directories that are present at startup.
	if err := ensureVaultDirs(cfg.Vault.Path); err != nil {
		return err
	}

	// Initialize storage.
	fs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Reconcile the index with the vault's current contents.
	if err := index.Sync(db, fs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// Self-write filter, entity stores, API service.
	filter := watch.NewSelfWriteFilter(cfg.Watch.Suppression())
	stores := store.New(fs, filter, logger)
	svc := api.NewService(stores, fs, db, logger)

	// Change fan-out: watcher -> notifier -> {index, SSE}.
	notifier := watch.NewNotifier()
	defer notifier.Close()
	classifier := watch.NewClassifier(cfg.Vault.Path, filter, nil, logger)

	broker := sse.NewBroker()
	defer broker.Close()

	// Trigger scheduler. Evaluation is manual in this build; its writes
	// still exercise the atomic update path and the index hook.
	sched := scheduler.New(stores.Triggers, scheduler.ManualEvaluator{}, logger)
	sched.OnUpdated = func(id string) {
		data, err := fs.Read(paths.TriggerData(id))
		if err != nil {
			return
		}
		if err := index.IndexEntity(db, models.KindTrigger, id, data); err != nil {
			logger.Warn("trigger reindex failed",
				slog.String("id", id), slog.String("error", err.Error()))
		}
	}

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher: classify external vault edits and publish them.
	g.Go(func() error {
		return watch.Run(gCtx, cfg.Vault.Path, cfg.Watch.Debounce(), classifier, notifier, logger)
	})

	// Index follower: mirror external edits into the search index.
	indexSub := notifier.Subscribe()
	g.Go(func() error {
		index.Follow(gCtx, db, fs, indexSub, logger)
		return nil
	})

	// SSE bridge: stream vault changes to connected clients.
	sseSub := notifier.Subscribe()
	g.Go(func() error {
		broker.Bridge(gCtx, sseSub)
		return nil
	})

	// Trigger scheduler.
	g.Go(func() error {
		if err := sched.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over the same vault and index. No
// watcher or HTTP surface is started; the process serves one agent on
// stdin/stdout and exits with it.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// MCP owns stdout for the protocol; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := ensureVaultDirs(cfg.Vault.Path); err != nil {
		return err
	}
	fs, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, fs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	filter := watch.NewSelfWriteFilter(cfg.Watch.Suppression())
	stores := store.New(fs, filter, logger)
	svc := api.NewService(stores, fs, db, logger)

	logger.Info("MCP server starting on stdio", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(svc).ServeStdio()
}

// ensureVaultDirs creates the vault root and its entity directories.
func ensureVaultDirs(root string) error {
	for _, dir := range []string{
		root,
		filepath.Join(root, paths.ConversationsDir),
		filepath.Join(root, paths.TriggersDir),
		filepath.Join(root, paths.RiffsDir),
		filepath.Join(root, paths.NotesDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create vault dir %s: %w", dir, err)
		}
	}
	return nil
}
