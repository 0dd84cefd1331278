// AstroChat - embeddable astrology consultation chat gateway
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/astroremedis/astrochat/internal/api"
	"github.com/astroremedis/astrochat/internal/astro"
	"github.com/astroremedis/astrochat/internal/chat"
	"github.com/astroremedis/astrochat/internal/config"
	"github.com/astroremedis/astrochat/internal/generate"
	"github.com/astroremedis/astrochat/internal/middleware"
	"github.com/astroremedis/astrochat/internal/session"
	"github.com/astroremedis/astrochat/internal/store"
	"github.com/astroremedis/astrochat/internal/transcript"
	"github.com/astroremedis/astrochat/internal/ws"
	"github.com/astroremedis/astrochat/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting gateway", "port", cfg.Port, "backend", cfg.BackendURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	backend := astro.NewHTTPClient(cfg.BackendURL)
	sessions := session.NewManager()
	hub := ws.NewHub()
	svc := chat.NewService(sessions, backend, repo, hub, generate.DefaultConfig(), transcript.DefaultConfig())

	// Initialize handlers.
	sessionHandler := api.NewSessionHandler(svc, cfg.Widget)
	wsHandler := ws.NewHandler(hub, svc, cfg.AllowedOrigin, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{cfg.AllowedOrigin}))

	sessionHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded widget frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: websocket connections stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers: idle-session sweep and event-log retention.
	sessions.StartTTLWorker(ctx, cfg.SessionTTL)
	startRetentionWorker(ctx, repo, cfg.EventRetention)

	go func() {
		slog.Info("Gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Gateway stopped successfully")
}

func startRetentionWorker(ctx context.Context, repo store.Repository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := repo.CleanupEvents(ctx, retention)
				if err != nil {
					slog.Warn("Event log cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Event log cleaned up", "deleted", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
