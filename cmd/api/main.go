// Package main is the entry point for the trip countdown API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

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
	_ "time/tzdata" // TRIP_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/pkordes/trip-countdown/internal/config"
	"github.com/pkordes/trip-countdown/internal/handler"
	"github.com/pkordes/trip-countdown/internal/localstore"
	"github.com/pkordes/trip-countdown/internal/middleware"
	"github.com/pkordes/trip-countdown/internal/repo"
	"github.com/pkordes/trip-countdown/internal/service"
)

func main() {
	// --- Config -----------------------------------------------------------
	// .env.local overrides .env; neither file is required, and real
	// environment variables win over both.
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("could not read env file", "file", f, "error", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before the configured one exists.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Local store ------------------------------------------------------
	local, err := localstore.OpenSQLite(ctx, cfg.LocalStorePath)
	if err != nil {
		slog.Error("failed to open local store", "path", cfg.LocalStorePath, "error", err)
		os.Exit(1)
	}
	defer local.Close()

	// --- Remote store -----------------------------------------------------
	// Unconfigured or unreachable remotes are not fatal: the service runs
	// local-only.
	var remote repo.TripRepo
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Warn("remote database unusable; running local-only", "error", err)
			break
		}
		defer pool.Close()
		remote = repo.NewTripRepo(pool)
		slog.Info("remote store: postgres")
	case cfg.RESTConfigured():
		remote = repo.NewRESTTripRepo(cfg.RemoteURL, cfg.RemoteKey, repo.NewHTTPClient(cfg.RemoteTimeout))
		slog.Info("remote store: rest", "url", cfg.RemoteURL)
	default:
		slog.Info("remote store not configured; running local-only")
	}

	// --- Trip state -------------------------------------------------------
	trips := service.NewTripConfigStore(local, remote,
		service.WithLocation(cfg.Location),
		service.WithLogger(logger),
		service.WithRemoteTimeout(cfg.RemoteTimeout),
	)
	if _, err := trips.LoadLocal(ctx); err != nil {
		slog.Warn("local store read failed; using defaults", "error", err)
	}
	// The remote read does not hold up startup.
	go trips.Resync(ctx)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	server := handler.NewServer(trips, handler.WithLogger(logger))
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	// The countdown stream clears its own write deadline.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Let in-flight remote writes finish before closing the stores.
	if err := trips.WaitContext(shutdownCtx); err != nil {
		slog.Warn("remote writes still pending at shutdown", "error", err)
	}
	slog.Info("server stopped")
}
