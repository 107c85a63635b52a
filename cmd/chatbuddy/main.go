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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/sgrenier/chatbuddy/internal/adapter/driven/provider"
	sqliteadapter "github.com/sgrenier/chatbuddy/internal/adapter/driven/sqlite"
	httphandler "github.com/sgrenier/chatbuddy/internal/adapter/driving/http"
	webhandler "github.com/sgrenier/chatbuddy/internal/adapter/driving/web"
	"github.com/sgrenier/chatbuddy/internal/application"
	"github.com/sgrenier/chatbuddy/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"openrouter_model", cfg.OpenRouterModel,
		"google_model", cfg.GoogleModel,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire provider clients. Keys come from each request, so the
	// clients themselves hold no credentials.
	clients := provider.NewRegistry(
		provider.NewGoogleClient(provider.WithGoogleModel(cfg.GoogleModel)),
		provider.NewOpenRouterClient(cfg.HTTPReferer, cfg.AppTitle,
			provider.WithOpenRouterModel(cfg.OpenRouterModel)),
	)
	validator := application.NewKeyValidator(clients)

	// 6. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(clients, validator, cfg.RequestTimeout, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 6b. Register the embedded chat GUI.
	webhandler.RegisterRoutes(mux)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("chatbuddy started", "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 8. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
