// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notifsync/internal/api"
	"github.com/starford/notifsync/internal/mcpserver"
	"github.com/starford/notifsync/internal/metrics"
	"github.com/starford/notifsync/internal/sequence"
	"github.com/starford/notifsync/internal/sse"
	"github.com/starford/notifsync/internal/storage"
	"github.com/starford/notifsync/internal/store"
)

const (
	sequenceName    = "commitments"
	shutdownTimeout = 10 * time.Second
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger, writing to fallback unless
// WithLogWriter overrode it.
func (a *application) newLogger(fallback io.Writer) *slog.Logger {
	w := a.logWriter
	if w == nil {
		w = fallback
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openStore opens the id counter and loads the commitment store. The
// returned close func releases the counter database.
func (a *application) openStore(ctx context.Context, logger *slog.Logger, opts ...store.Option) (*store.Store, func(), error) {
	cfg := a.config

	file, err := storage.NewFile(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	seq, err := sequence.Open(cfg.Sequence.Path, sequenceName)
	if err != nil {
		return nil, nil, fmt.Errorf("init sequence: %w", err)
	}

	opts = append([]store.Option{store.WithLogger(logger)}, opts...)
	st, err := store.Open(ctx, file, seq, opts...)
	if err != nil {
		seq.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	if last, err := seq.Current(ctx); err == nil {
		logger.Info("Store ready",
			slog.String("path", file.Path()),
			slog.Int("records", len(st.List())),
			slog.Uint64("last_allocated_id", last))
	}
	return st, func() { seq.Close() }, nil
}

func (a *application) watchConfig() store.WatchConfig {
	return store.WatchConfig{
		Interval: a.config.Store.PollInterval(),
		FSNotify: a.config.Store.WatchFS,
	}
}

// Run starts the HTTP server and the reconciler.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger(os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sequence_path", cfg.Sequence.Path),
		slog.Duration("poll_interval", cfg.Store.PollInterval()),
		slog.Bool("watch_fs", cfg.Store.WatchFS),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	st, closeStore, err := app.openStore(ctx, logger, store.WithEventCallback(broker.PublishChange))
	if err != nil {
		return err
	}
	defer closeStore()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, api.HealthResponse{Status: "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, api.HealthResponse{Status: "ok", Records: len(st.List())})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(st, broker, cfg.App.HTTP.AllowedOrigins))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Reconciler; its reloads reach SSE clients through the event callback.
	g.Go(func() error {
		return st.Watch(gCtx, app.watchConfig())
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// Streams never finish on their own; end them before Shutdown waits.
		broker.Close()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the store over MCP on stdin/stdout. The reconciler keeps
// running so that edits made by the HTTP process or by hand are visible.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := app.newLogger(os.Stderr)

	st, closeStore, err := app.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)
	serveCtx, cancelServe := context.WithCancel(gCtx)

	g.Go(func() error {
		defer cancelServe()
		return st.Watch(serveCtx, app.watchConfig())
	})

	g.Go(func() error {
		// stdin EOF ends the session; stop the reconciler with it.
		defer cancelServe()
		srv := mcpserver.New(st, app.version)
		logger.Info("MCP server listening on stdio", slog.String("version", app.version))
		err := srv.ServeStdio(serveCtx, os.Stdin, os.Stdout, slog.NewLogLogger(logger.Handler(), slog.LevelError))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}

func writeHealth(w http.ResponseWriter, body api.HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
